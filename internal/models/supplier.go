package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Supplier statuses.
const (
	SupplierActive    = "active"
	SupplierInactive  = "inactive"
	SupplierSuspended = "suspended"
)

// Supplier is a vendor record with contact, address and bank coordinates.
type Supplier struct {
	Meta

	Name          string      `json:"name"`
	Category      string      `json:"category,omitempty"`
	ContactPerson string      `json:"contactPerson,omitempty"`
	Email         string      `json:"email,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	TaxID         string      `json:"taxId,omitempty"`
	Rating        float64     `json:"rating,omitempty"`
	Address       Address     `json:"address,omitempty"`
	BankDetails   BankDetails `json:"bankDetails,omitempty"`
	OnboardedDate *time.Time  `json:"onboardedDate,omitempty"`
	SuspendReason string      `json:"suspendReason,omitempty"`
}

// Validate checks required fields on incoming create requests.
func (s *Supplier) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Email, is.Email),
	)
}
