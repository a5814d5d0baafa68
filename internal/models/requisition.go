package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Requisition statuses.
const (
	RequisitionDraft     = "draft"
	RequisitionPending   = "pending"
	RequisitionApproved  = "approved"
	RequisitionRejected  = "rejected"
	RequisitionCancelled = "cancelled"
	RequisitionConverted = "converted"
)

// Requisition is a purchase request raised by a department before any order
// is placed.
type Requisition struct {
	Meta

	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Department      string     `json:"department"`
	Requester       string     `json:"requester"`
	Priority        string     `json:"priority,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	TotalAmount     float64    `json:"totalAmount"`
	LineItems       []LineItem `json:"lineItems,omitempty"`
	NeededBy        *time.Time `json:"neededBy,omitempty"`
	SubmittedDate   *time.Time `json:"submittedDate,omitempty"`
	ApprovedDate    *time.Time `json:"approvedDate,omitempty"`
	RejectedDate    *time.Time `json:"rejectedDate,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CancelledDate   *time.Time `json:"cancelledDate,omitempty"`
	ConvertedDate   *time.Time `json:"convertedDate,omitempty"`
}

// Validate checks required fields on incoming create requests. Field presence
// is an API-layer concern; the collection store accepts any well-formed record.
func (r *Requisition) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Department, validation.Required),
		validation.Field(&r.Requester, validation.Required),
	)
}
