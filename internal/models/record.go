// Package models defines the domain record types for Spendguard.
package models

import "time"

// Meta is the envelope every entity record carries. The embedding struct gets
// its fields promoted in both Go and JSON, so every record serializes with
// top-level "id", "status" and "lastModified" keys.
//
// ID and LastModified are owned by the collection store: ID is assigned once
// at creation and never reused within a session, LastModified is re-stamped on
// every mutation and never taken from the caller.
type Meta struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	LastModified time.Time `json:"lastModified"`
}

// GetID returns the record id.
func (m *Meta) GetID() string { return m.ID }

// SetID assigns the record id.
func (m *Meta) SetID(id string) { m.ID = id }

// GetStatus returns the current status.
func (m *Meta) GetStatus() string { return m.Status }

// SetStatus assigns the status. Only the collection store's transition
// machinery should call this; pages and handlers go through named operations.
func (m *Meta) SetStatus(s string) { m.Status = s }

// SetLastModified stamps the modification time.
func (m *Meta) SetLastModified(t time.Time) { m.LastModified = t }

// LineItem is an owned sub-record of requisitions and purchase orders.
// TotalPrice must equal Quantity * UnitPrice; the API layer computes it via
// NormalizeLineItems before a record reaches the store.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Address is a nested postal address carried verbatim on suppliers and orders.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// BankDetails holds supplier payment coordinates.
type BankDetails struct {
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty"`
}

// NormalizeLineItems recomputes TotalPrice for each item and returns the sum.
// Line-item arithmetic is a form-layer concern: the store persists whatever it
// is handed, so callers normalize before Create/Update.
func NormalizeLineItems(items []LineItem) float64 {
	var total float64
	for i := range items {
		items[i].TotalPrice = items[i].Quantity * items[i].UnitPrice
		total += items[i].TotalPrice
	}
	return total
}
