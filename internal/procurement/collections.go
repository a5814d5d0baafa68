// Package procurement composes the entity collections, the relationship
// graph and the notification feed into the domain service behind the console.
package procurement

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rkreels/spendguard/internal/models"
	"github.com/rkreels/spendguard/internal/store"
)

// Entity type tags used in relationship edges and API paths.
const (
	EntityRequisition = "requisition"
	EntityOrder       = "purchase_order"
	EntityInvoice     = "invoice"
	EntitySupplier    = "supplier"
	EntityContract    = "contract"
	EntityFlow        = "supply_chain_flow"
)

// Storage keys, one per collection.
const (
	KeyRequisitions = "requisitions"
	KeyOrders       = "purchase_orders"
	KeyInvoices     = "invoices"
	KeySuppliers    = "suppliers"
	KeyContracts    = "contracts"
	KeyFlows        = "supply_chain_flows"
)

// Relationship type tags the service itself creates. LinkEntities accepts
// arbitrary tags; these are the conventional ones.
const (
	RelDerivedFrom = "derived_from" // purchase order -> requisition
	RelBillingFor  = "billing_for"  // invoice -> purchase order
	RelSuppliedBy  = "supplied_by"  // purchase order -> supplier
	RelGovernedBy  = "governed_by"  // purchase order -> contract
	RelFulfills    = "fulfills"     // supply chain flow -> purchase order
)

func amountStr(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// listAll is the unconstrained query used by the rollup scans.
func listAll() store.Query { return store.Query{} }

func requisitionConfig(now func() time.Time, seed bool) store.Config[*models.Requisition] {
	cfg := store.Config[*models.Requisition]{
		Key:           KeyRequisitions,
		New:           func() *models.Requisition { return &models.Requisition{} },
		NewID:         func(t time.Time, seq int) string { return fmt.Sprintf("REQ-%d-%04d", t.Year(), seq) },
		DefaultStatus: models.RequisitionDraft,
		SearchText: func(r *models.Requisition) []string {
			return []string{r.ID, r.Title, r.Description, r.Department, r.Requester}
		},
		FieldValue: func(r *models.Requisition, key string) (string, bool) {
			switch key {
			case "department":
				return r.Department, true
			case "requester":
				return r.Requester, true
			case "priority":
				return r.Priority, true
			case "title":
				return r.Title, true
			case "totalAmount":
				return amountStr(r.TotalAmount), true
			}
			return "", false
		},
		Amount: func(r *models.Requisition) float64 { return r.TotalAmount },
		Transitions: map[string]store.Transition{
			"submit":  {From: []string{models.RequisitionDraft}, To: models.RequisitionPending, Stamp: "submittedDate"},
			"approve": {From: []string{models.RequisitionPending}, To: models.RequisitionApproved, Stamp: "approvedDate"},
			"reject":  {From: []string{models.RequisitionPending}, To: models.RequisitionRejected, Stamp: "rejectedDate"},
			"cancel":  {From: []string{models.RequisitionDraft, models.RequisitionPending}, To: models.RequisitionCancelled, Stamp: "cancelledDate"},
			"convert": {From: []string{models.RequisitionApproved}, To: models.RequisitionConverted, Stamp: "convertedDate"},
		},
		Now: now,
	}
	if seed {
		cfg.Seed = seedRequisitions
	}
	return cfg
}

func orderConfig(now func() time.Time, seed bool) store.Config[*models.PurchaseOrder] {
	cfg := store.Config[*models.PurchaseOrder]{
		Key:           KeyOrders,
		New:           func() *models.PurchaseOrder { return &models.PurchaseOrder{} },
		NewID:         func(t time.Time, seq int) string { return fmt.Sprintf("PO-%d-%04d", t.Year(), seq) },
		DefaultStatus: models.OrderDraft,
		SearchText: func(o *models.PurchaseOrder) []string {
			return []string{o.ID, o.SupplierName, o.Department, o.PaymentTerms}
		},
		FieldValue: func(o *models.PurchaseOrder, key string) (string, bool) {
			switch key {
			case "supplierId":
				return o.SupplierID, true
			case "supplierName":
				return o.SupplierName, true
			case "department":
				return o.Department, true
			case "totalAmount":
				return amountStr(o.TotalAmount), true
			}
			return "", false
		},
		Amount: func(o *models.PurchaseOrder) float64 { return o.TotalAmount },
		Transitions: map[string]store.Transition{
			"send":        {From: []string{models.OrderDraft}, To: models.OrderSent, Stamp: "sentDate"},
			"acknowledge": {From: []string{models.OrderSent}, To: models.OrderAcknowledged, Stamp: "acknowledgedDate"},
			"receive":     {From: []string{models.OrderSent, models.OrderAcknowledged}, To: models.OrderReceived, Stamp: "receivedDate"},
			"cancel":      {From: []string{models.OrderDraft, models.OrderSent}, To: models.OrderCancelled, Stamp: "cancelledDate"},
		},
		Now: now,
	}
	if seed {
		cfg.Seed = seedOrders
	}
	return cfg
}

func invoiceConfig(now func() time.Time, seed bool) store.Config[*models.Invoice] {
	cfg := store.Config[*models.Invoice]{
		Key:           KeyInvoices,
		New:           func() *models.Invoice { return &models.Invoice{} },
		NewID:         func(t time.Time, seq int) string { return fmt.Sprintf("INV-%d-%04d", t.Year(), seq) },
		DefaultStatus: models.InvoicePending,
		SearchText: func(i *models.Invoice) []string {
			return []string{i.ID, i.SupplierName, i.Department, i.PaymentMethod}
		},
		FieldValue: func(i *models.Invoice, key string) (string, bool) {
			switch key {
			case "supplierId":
				return i.SupplierID, true
			case "supplierName":
				return i.SupplierName, true
			case "department":
				return i.Department, true
			case "totalAmount":
				return amountStr(i.TotalAmount), true
			}
			return "", false
		},
		Amount: func(i *models.Invoice) float64 { return i.TotalAmount },
		Transitions: map[string]store.Transition{
			"approve": {From: []string{models.InvoicePending, models.InvoiceDisputed}, To: models.InvoiceApproved, Stamp: "approvedDate"},
			"pay":     {From: []string{models.InvoiceApproved}, To: models.InvoicePaid, Stamp: "paidDate"},
			"dispute": {From: []string{models.InvoicePending}, To: models.InvoiceDisputed, Stamp: "disputedDate"},
			"cancel":  {From: []string{models.InvoicePending, models.InvoiceDisputed}, To: models.InvoiceCancelled, Stamp: "cancelledDate"},
		},
		Now: now,
	}
	if seed {
		cfg.Seed = seedInvoices
	}
	return cfg
}

func supplierConfig(now func() time.Time, seed bool) store.Config[*models.Supplier] {
	cfg := store.Config[*models.Supplier]{
		Key:           KeySuppliers,
		New:           func() *models.Supplier { return &models.Supplier{} },
		NewID:         func(_ time.Time, seq int) string { return fmt.Sprintf("SUP-%03d", seq) },
		DefaultStatus: models.SupplierActive,
		SearchText: func(s *models.Supplier) []string {
			return []string{s.ID, s.Name, s.Category, s.ContactPerson, s.Email}
		},
		FieldValue: func(s *models.Supplier, key string) (string, bool) {
			switch key {
			case "category":
				return s.Category, true
			case "name":
				return s.Name, true
			case "email":
				return s.Email, true
			case "rating":
				return amountStr(s.Rating), true
			}
			return "", false
		},
		Transitions: map[string]store.Transition{
			"activate":   {From: []string{models.SupplierInactive, models.SupplierSuspended}, To: models.SupplierActive},
			"deactivate": {From: []string{models.SupplierActive}, To: models.SupplierInactive},
			"suspend":    {From: []string{models.SupplierActive}, To: models.SupplierSuspended},
		},
		Now: now,
	}
	if seed {
		cfg.Seed = seedSuppliers
	}
	return cfg
}

func contractConfig(now func() time.Time, seed bool) store.Config[*models.Contract] {
	cfg := store.Config[*models.Contract]{
		Key:           KeyContracts,
		New:           func() *models.Contract { return &models.Contract{} },
		NewID:         func(t time.Time, seq int) string { return fmt.Sprintf("CTR-%d-%04d", t.Year(), seq) },
		DefaultStatus: models.ContractDraft,
		SearchText: func(c *models.Contract) []string {
			return []string{c.ID, c.Title, c.SupplierName}
		},
		FieldValue: func(c *models.Contract, key string) (string, bool) {
			switch key {
			case "supplierId":
				return c.SupplierID, true
			case "supplierName":
				return c.SupplierName, true
			case "title":
				return c.Title, true
			case "value":
				return amountStr(c.Value), true
			}
			return "", false
		},
		Amount: func(c *models.Contract) float64 { return c.Value },
		Transitions: map[string]store.Transition{
			"activate":  {From: []string{models.ContractDraft}, To: models.ContractActive, Stamp: "activatedDate"},
			"expire":    {From: []string{models.ContractActive}, To: models.ContractExpired, Stamp: "expiredDate"},
			"terminate": {From: []string{models.ContractActive}, To: models.ContractTerminated, Stamp: "terminatedDate"},
			"cancel":    {From: []string{models.ContractDraft}, To: models.ContractCancelled, Stamp: "cancelledDate"},
		},
		Now: now,
	}
	if seed {
		cfg.Seed = seedContracts
	}
	return cfg
}

func flowConfig(now func() time.Time, seed bool) store.Config[*models.SupplyChainFlow] {
	cfg := store.Config[*models.SupplyChainFlow]{
		Key:           KeyFlows,
		New:           func() *models.SupplyChainFlow { return &models.SupplyChainFlow{} },
		NewID:         func(_ time.Time, seq int) string { return fmt.Sprintf("FLOW-%03d", seq) },
		DefaultStatus: models.FlowPlanned,
		SearchText: func(f *models.SupplyChainFlow) []string {
			return []string{f.ID, f.OrderID, f.Origin, f.Destination, f.Carrier, f.TrackingNumber}
		},
		FieldValue: func(f *models.SupplyChainFlow, key string) (string, bool) {
			switch key {
			case "orderId":
				return f.OrderID, true
			case "carrier":
				return f.Carrier, true
			case "origin":
				return f.Origin, true
			case "destination":
				return f.Destination, true
			}
			return "", false
		},
		Transitions: map[string]store.Transition{
			"dispatch": {From: []string{models.FlowPlanned}, To: models.FlowInTransit, Stamp: "dispatchedDate"},
			"delay":    {From: []string{models.FlowInTransit}, To: models.FlowDelayed, Stamp: "delayedDate"},
			"resume":   {From: []string{models.FlowDelayed}, To: models.FlowInTransit},
			"deliver":  {From: []string{models.FlowInTransit, models.FlowDelayed}, To: models.FlowDelivered, Stamp: "deliveredDate"},
		},
		Now: now,
	}
	if seed {
		cfg.Seed = seedFlows
	}
	return cfg
}
