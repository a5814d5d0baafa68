package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supply-chain flow statuses.
const (
	FlowPlanned   = "planned"
	FlowInTransit = "in_transit"
	FlowDelayed   = "delayed"
	FlowDelivered = "delivered"
)

// SupplyChainFlow tracks a shipment leg for an order. The order reference is
// soft (a string id resolved through the relationship graph); deleting the
// order does not touch the flow.
type SupplyChainFlow struct {
	Meta

	OrderID        string     `json:"orderId,omitempty"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"trackingNumber,omitempty"`
	ETA            *time.Time `json:"eta,omitempty"`
	DispatchedDate *time.Time `json:"dispatchedDate,omitempty"`
	DelayedDate    *time.Time `json:"delayedDate,omitempty"`
	DelayReason    string     `json:"delayReason,omitempty"`
	DeliveredDate  *time.Time `json:"deliveredDate,omitempty"`
}

// Validate checks required fields on incoming create requests.
func (f *SupplyChainFlow) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Origin, validation.Required),
		validation.Field(&f.Destination, validation.Required),
	)
}
