package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Invoice statuses.
const (
	InvoicePending   = "pending"
	InvoiceApproved  = "approved"
	InvoicePaid      = "paid"
	InvoiceDisputed  = "disputed"
	InvoiceCancelled = "cancelled"
)

// Invoice is a supplier bill, typically raised against a received order.
type Invoice struct {
	Meta

	OrderID       string     `json:"orderId,omitempty"`
	SupplierID    string     `json:"supplierId,omitempty"`
	SupplierName  string     `json:"supplierName,omitempty"`
	Department    string     `json:"department,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	Amount        float64    `json:"amount"`
	TaxAmount     float64    `json:"taxAmount,omitempty"`
	TotalAmount   float64    `json:"totalAmount"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	IssueDate     *time.Time `json:"issueDate,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	ApprovedDate  *time.Time `json:"approvedDate,omitempty"`
	PaidDate      *time.Time `json:"paidDate,omitempty"`
	DisputedDate  *time.Time `json:"disputedDate,omitempty"`
	DisputeReason string     `json:"disputeReason,omitempty"`
	CancelledDate *time.Time `json:"cancelledDate,omitempty"`
}

// Validate checks required fields on incoming create requests.
func (i *Invoice) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.SupplierName, validation.Required),
		validation.Field(&i.TotalAmount, validation.Min(0.0)),
	)
}
