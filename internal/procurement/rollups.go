package procurement

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/graph"
	"github.com/rkreels/spendguard/internal/models"
)

// OverCommitThreshold is the utilization ratio at which a contract shows up
// on the spend-guard report.
const OverCommitThreshold = 0.9

// coerceFloat maps non-numeric input to zero rather than signaling a parse
// failure, matching how edge metadata amounts are treated throughout.
func coerceFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ContractUtilization is the drawdown of linked orders against a contract's
// value. Committed comes from edge metadata, not from resolving the orders:
// the graph has no numeric knowledge of the entities it links.
type ContractUtilization struct {
	ContractID   string  `json:"contractId"`
	Title        string  `json:"title"`
	Value        float64 `json:"value"`
	Committed    float64 `json:"committed"`
	Utilization  float64 `json:"utilization"`
	LinkedOrders int     `json:"linkedOrders"`
}

// ContractUtilizationFor sums the amount metadata of every purchase-order
// edge touching the contract.
func (s *Service) ContractUtilizationFor(contractID string) (ContractUtilization, error) {
	ctr, ok := s.Contracts.Get(contractID)
	if !ok {
		return ContractUtilization{}, fmt.Errorf("%s %s: %w", EntityContract, contractID, apperr.ErrNotFound)
	}
	u := ContractUtilization{ContractID: ctr.ID, Title: ctr.Title, Value: ctr.Value}
	for _, rel := range s.Graph.RelatedEntities(EntityContract, contractID) {
		if rel.Entity != EntityOrder {
			continue
		}
		u.Committed += coerceFloat(rel.Metadata["amount"])
		u.LinkedOrders++
	}
	if u.Value > 0 {
		u.Utilization = u.Committed / u.Value
	}
	return u, nil
}

// SupplierSpend aggregates invoice spend for one supplier.
type SupplierSpend struct {
	SupplierID  string  `json:"supplierId"`
	Name        string  `json:"name"`
	Paid        float64 `json:"paid"`
	Outstanding float64 `json:"outstanding"`
	Invoices    int     `json:"invoices"`
	OpenOrders  int     `json:"openOrders"`
}

// SupplierSpendFor scans invoices and orders referencing the supplier.
func (s *Service) SupplierSpendFor(supplierID string) (SupplierSpend, error) {
	sup, ok := s.Suppliers.Get(supplierID)
	if !ok {
		return SupplierSpend{}, fmt.Errorf("%s %s: %w", EntitySupplier, supplierID, apperr.ErrNotFound)
	}
	out := SupplierSpend{SupplierID: sup.ID, Name: sup.Name}
	for _, inv := range s.Invoices.List(listAll()) {
		if inv.SupplierID != supplierID {
			continue
		}
		out.Invoices++
		switch inv.Status {
		case models.InvoicePaid:
			out.Paid += inv.TotalAmount
		case models.InvoicePending, models.InvoiceApproved, models.InvoiceDisputed:
			out.Outstanding += inv.TotalAmount
		}
	}
	for _, o := range s.Orders.List(listAll()) {
		if o.SupplierID != supplierID {
			continue
		}
		if o.Status == models.OrderSent || o.Status == models.OrderAcknowledged {
			out.OpenOrders++
		}
	}
	return out, nil
}

// SpendGuardReport is the risk dashboard aggregate.
type SpendGuardReport struct {
	GeneratedAt            time.Time             `json:"generatedAt"`
	PendingRequisitions    int                   `json:"pendingRequisitions"`
	PendingInvoices        int                   `json:"pendingInvoices"`
	DisputedInvoices       []string              `json:"disputedInvoices"`
	DelayedFlows           []string              `json:"delayedFlows"`
	SuspendedSuppliers     []string              `json:"suspendedSuppliers"`
	OverCommittedContracts []ContractUtilization `json:"overCommittedContracts"`
	OpenOrderSpend         float64               `json:"openOrderSpend"`
	UnreadUrgent           int                   `json:"unreadUrgent"`
}

// SpendGuard scans every collection and collects risk signals: approvals
// piling up, disputes, delays, suspended vendors and contracts close to
// their ceiling.
func (s *Service) SpendGuard() SpendGuardReport {
	rep := SpendGuardReport{
		GeneratedAt:            s.now(),
		DisputedInvoices:       []string{},
		DelayedFlows:           []string{},
		SuspendedSuppliers:     []string{},
		OverCommittedContracts: []ContractUtilization{},
	}

	rep.PendingRequisitions = s.Requisitions.Metrics().ByStatus[models.RequisitionPending]

	for _, inv := range s.Invoices.List(listAll()) {
		switch inv.Status {
		case models.InvoicePending:
			rep.PendingInvoices++
		case models.InvoiceDisputed:
			rep.DisputedInvoices = append(rep.DisputedInvoices, inv.ID)
		}
	}
	for _, f := range s.Flows.List(listAll()) {
		if f.Status == models.FlowDelayed {
			rep.DelayedFlows = append(rep.DelayedFlows, f.ID)
		}
	}
	for _, sup := range s.Suppliers.List(listAll()) {
		if sup.Status == models.SupplierSuspended {
			rep.SuspendedSuppliers = append(rep.SuspendedSuppliers, sup.ID)
		}
	}
	for _, o := range s.Orders.List(listAll()) {
		if o.Status == models.OrderSent || o.Status == models.OrderAcknowledged {
			rep.OpenOrderSpend += o.TotalAmount
		}
	}
	for _, ctr := range s.Contracts.List(listAll()) {
		if ctr.Status != models.ContractActive {
			continue
		}
		u, err := s.ContractUtilizationFor(ctr.ID)
		if err != nil {
			continue
		}
		if u.Utilization >= OverCommitThreshold {
			rep.OverCommittedContracts = append(rep.OverCommittedContracts, u)
		}
	}
	rep.UnreadUrgent = s.Feed.Stats().UrgentUnread
	return rep
}

// ResolvedRelated is a neighbor lookup result enriched with an advisory
// resolution against the entity collections. Edges may dangle: deletion
// never cascades, so Resolved reports whether the target still exists.
type ResolvedRelated struct {
	graph.Related
	Resolved bool   `json:"resolved"`
	Label    string `json:"label,omitempty"`
}

// Related resolves the neighbors of (entity, id), tolerating missing targets.
func (s *Service) Related(entity, id string) []ResolvedRelated {
	rels := s.Graph.RelatedEntities(entity, id)
	out := make([]ResolvedRelated, 0, len(rels))
	for _, rel := range rels {
		r := ResolvedRelated{Related: rel}
		r.Resolved, r.Label = s.lookup(rel.Entity, rel.ID)
		out = append(out, r)
	}
	return out
}

// TraverseFrom walks the relationship neighborhood breadth-first.
func (s *Service) TraverseFrom(entity, id string, maxDepth int) graph.Traversal {
	return s.Graph.Traverse(entity, id, maxDepth)
}

// lookup checks one soft reference against its collection and returns a
// display label when present.
func (s *Service) lookup(entity, id string) (bool, string) {
	switch entity {
	case EntityRequisition:
		if r, ok := s.Requisitions.Get(id); ok {
			return true, r.Title
		}
	case EntityOrder:
		if o, ok := s.Orders.Get(id); ok {
			return true, o.SupplierName
		}
	case EntityInvoice:
		if i, ok := s.Invoices.Get(id); ok {
			return true, i.SupplierName
		}
	case EntitySupplier:
		if sup, ok := s.Suppliers.Get(id); ok {
			return true, sup.Name
		}
	case EntityContract:
		if c, ok := s.Contracts.Get(id); ok {
			return true, c.Title
		}
	case EntityFlow:
		if f, ok := s.Flows.Get(id); ok {
			return true, f.Origin + " to " + f.Destination
		}
	}
	return false, ""
}
