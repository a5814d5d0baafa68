package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Contract statuses.
const (
	ContractDraft      = "draft"
	ContractActive     = "active"
	ContractExpired    = "expired"
	ContractTerminated = "terminated"
	ContractCancelled  = "cancelled"
)

// Contract is a framework agreement with a supplier; linked orders draw down
// against its value.
type Contract struct {
	Meta

	Title             string     `json:"title"`
	SupplierID        string     `json:"supplierId,omitempty"`
	SupplierName      string     `json:"supplierName,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	Value             float64    `json:"value"`
	AutoRenew         bool       `json:"autoRenew,omitempty"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	ActivatedDate     *time.Time `json:"activatedDate,omitempty"`
	ExpiredDate       *time.Time `json:"expiredDate,omitempty"`
	TerminatedDate    *time.Time `json:"terminatedDate,omitempty"`
	TerminationReason string     `json:"terminationReason,omitempty"`
	CancelledDate     *time.Time `json:"cancelledDate,omitempty"`
}

// Validate checks required fields on incoming create requests.
func (c *Contract) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.Value, validation.Min(0.0)),
	)
}
