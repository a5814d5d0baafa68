package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rkreels/spendguard/internal/models"
)

// Create-request decoding. Field presence is validated here, at the form
// layer; the collection store accepts whatever it is handed. Line-item
// totals are recomputed server-side so totalPrice always equals
// quantity * unitPrice. A caller-supplied status is discarded: records
// enter at the collection's default status and move only through the
// named transition endpoints.

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func decodeRequisition(r *http.Request) (*models.Requisition, error) {
	var req models.Requisition
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	req.Status = ""
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.LineItems) > 0 {
		req.TotalAmount = models.NormalizeLineItems(req.LineItems)
	}
	return &req, nil
}

func decodeOrder(r *http.Request) (*models.PurchaseOrder, error) {
	var o models.PurchaseOrder
	if err := decodeBody(r, &o); err != nil {
		return nil, err
	}
	o.Status = ""
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if len(o.LineItems) > 0 {
		o.TotalAmount = models.NormalizeLineItems(o.LineItems)
	}
	return &o, nil
}

func decodeInvoice(r *http.Request) (*models.Invoice, error) {
	var inv models.Invoice
	if err := decodeBody(r, &inv); err != nil {
		return nil, err
	}
	inv.Status = ""
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if inv.TotalAmount == 0 {
		inv.TotalAmount = inv.Amount + inv.TaxAmount
	}
	return &inv, nil
}

func decodeSupplier(r *http.Request) (*models.Supplier, error) {
	var s models.Supplier
	if err := decodeBody(r, &s); err != nil {
		return nil, err
	}
	s.Status = ""
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeContract(r *http.Request) (*models.Contract, error) {
	var c models.Contract
	if err := decodeBody(r, &c); err != nil {
		return nil, err
	}
	c.Status = ""
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeFlow(r *http.Request) (*models.SupplyChainFlow, error) {
	var f models.SupplyChainFlow
	if err := decodeBody(r, &f); err != nil {
		return nil, err
	}
	f.Status = ""
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// actionRequest is the optional body of a transition POST.
type actionRequest struct {
	Reason     string `json:"reason,omitempty"`
	SupplierID string `json:"supplierId,omitempty"`
}

// actionBody reads the optional transition body; an empty or absent body is
// fine.
func actionBody(r *http.Request) actionRequest {
	var req actionRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	return req
}

// linkRequest is the body of POST /relationships.
type linkRequest struct {
	FromEntity       string            `json:"fromEntity"`
	FromID           string            `json:"fromId"`
	ToEntity         string            `json:"toEntity"`
	ToID             string            `json:"toId"`
	RelationshipType string            `json:"relationshipType"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Validate checks all endpoint coordinates are present.
func (l *linkRequest) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.FromEntity, validation.Required),
		validation.Field(&l.FromID, validation.Required),
		validation.Field(&l.ToEntity, validation.Required),
		validation.Field(&l.ToID, validation.Required),
		validation.Field(&l.RelationshipType, validation.Required),
	)
}

// notificationRequest is the body of POST /notifications.
type notificationRequest struct {
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Priority   string            `json:"priority,omitempty"`
	ActionURL  string            `json:"actionUrl,omitempty"`
	EntityType string            `json:"entityType,omitempty"`
	EntityID   string            `json:"entityId,omitempty"`
	Department string            `json:"department,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Validate checks the minimum fields for a feed entry.
func (n *notificationRequest) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.Title, validation.Required),
		validation.Field(&n.Message, validation.Required),
	)
}
