package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Purchase order statuses.
const (
	OrderDraft        = "draft"
	OrderSent         = "sent"
	OrderAcknowledged = "acknowledged"
	OrderReceived     = "received"
	OrderCancelled    = "cancelled"
)

// PurchaseOrder is a committed order placed with a supplier, usually derived
// from an approved requisition.
type PurchaseOrder struct {
	Meta

	SupplierID       string     `json:"supplierId,omitempty"`
	SupplierName     string     `json:"supplierName,omitempty"`
	Department       string     `json:"department,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	TotalAmount      float64    `json:"totalAmount"`
	LineItems        []LineItem `json:"lineItems,omitempty"`
	PaymentTerms     string     `json:"paymentTerms,omitempty"`
	ShippingAddress  Address    `json:"shippingAddress,omitempty"`
	ExpectedDelivery *time.Time `json:"expectedDelivery,omitempty"`
	SentDate         *time.Time `json:"sentDate,omitempty"`
	AcknowledgedDate *time.Time `json:"acknowledgedDate,omitempty"`
	ReceivedDate     *time.Time `json:"receivedDate,omitempty"`
	CancelledDate    *time.Time `json:"cancelledDate,omitempty"`
}

// Validate checks required fields on incoming create requests.
func (o *PurchaseOrder) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.SupplierName, validation.Required),
	)
}
