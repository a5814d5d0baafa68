package procurement

import (
	"time"

	"github.com/rkreels/spendguard/internal/models"
)

// Seed data installed when a collection's storage key is absent. Ids follow
// each collection's scheme so the sequence counter resumes after them.

func seedDate(month time.Month, day int) time.Time {
	return time.Date(2026, month, day, 9, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func seedRequisitions() []*models.Requisition {
	return []*models.Requisition{
		{
			Meta:        models.Meta{ID: "REQ-2026-0001", Status: models.RequisitionPending, LastModified: seedDate(time.June, 2)},
			Title:       "Laptop refresh for engineering",
			Description: "Replace 8 developer laptops past the three-year mark.",
			Department:  "Engineering",
			Requester:   "Dana Whitfield",
			Priority:    "high",
			Currency:    "USD",
			TotalAmount: 14400,
			LineItems: []models.LineItem{
				{ID: "li-1", Description: "14\" developer laptop", Quantity: 8, UnitPrice: 1800, TotalPrice: 14400},
			},
			SubmittedDate: datePtr(seedDate(time.June, 2)),
		},
		{
			Meta:        models.Meta{ID: "REQ-2026-0002", Status: models.RequisitionApproved, LastModified: seedDate(time.June, 10)},
			Title:       "Warehouse shelving expansion",
			Department:  "Operations",
			Requester:   "Miguel Aranda",
			Priority:    "medium",
			Currency:    "USD",
			TotalAmount: 6200,
			LineItems: []models.LineItem{
				{ID: "li-1", Description: "Heavy-duty shelving bay", Quantity: 20, UnitPrice: 310, TotalPrice: 6200},
			},
			SubmittedDate: datePtr(seedDate(time.June, 5)),
			ApprovedDate:  datePtr(seedDate(time.June, 10)),
		},
		{
			Meta:        models.Meta{ID: "REQ-2026-0003", Status: models.RequisitionDraft, LastModified: seedDate(time.July, 1)},
			Title:       "Quarterly office supplies",
			Department:  "Facilities",
			Requester:   "Priya Nair",
			Priority:    "low",
			Currency:    "USD",
			TotalAmount: 950,
		},
	}
}

func seedOrders() []*models.PurchaseOrder {
	return []*models.PurchaseOrder{
		{
			Meta:         models.Meta{ID: "PO-2026-0001", Status: models.OrderSent, LastModified: seedDate(time.June, 12)},
			SupplierID:   "SUP-001",
			SupplierName: "Northgate IT Supply",
			Department:   "Engineering",
			Currency:     "USD",
			TotalAmount:  14400,
			PaymentTerms: "net 30",
			LineItems: []models.LineItem{
				{ID: "li-1", Description: "14\" developer laptop", Quantity: 8, UnitPrice: 1800, TotalPrice: 14400},
			},
			SentDate:         datePtr(seedDate(time.June, 12)),
			ExpectedDelivery: datePtr(seedDate(time.July, 3)),
		},
		{
			Meta:         models.Meta{ID: "PO-2026-0002", Status: models.OrderDraft, LastModified: seedDate(time.June, 15)},
			SupplierID:   "SUP-002",
			SupplierName: "Aranda Industrial",
			Department:   "Operations",
			Currency:     "USD",
			TotalAmount:  6200,
			PaymentTerms: "net 45",
		},
	}
}

func seedInvoices() []*models.Invoice {
	return []*models.Invoice{
		{
			Meta:         models.Meta{ID: "INV-2026-0001", Status: models.InvoiceApproved, LastModified: seedDate(time.June, 20)},
			SupplierID:   "SUP-001",
			SupplierName: "Northgate IT Supply",
			Department:   "Engineering",
			Currency:     "USD",
			Amount:       14400,
			TaxAmount:    1152,
			TotalAmount:  15552,
			IssueDate:    datePtr(seedDate(time.June, 14)),
			DueDate:      datePtr(seedDate(time.July, 14)),
			ApprovedDate: datePtr(seedDate(time.June, 20)),
		},
		{
			Meta:         models.Meta{ID: "INV-2026-0002", Status: models.InvoicePending, LastModified: seedDate(time.June, 25)},
			SupplierID:   "SUP-003",
			SupplierName: "Crestline Logistics",
			Department:   "Operations",
			Currency:     "USD",
			Amount:       2100,
			TotalAmount:  2100,
			IssueDate:    datePtr(seedDate(time.June, 24)),
			DueDate:      datePtr(seedDate(time.July, 24)),
		},
		{
			Meta:          models.Meta{ID: "INV-2026-0003", Status: models.InvoiceDisputed, LastModified: seedDate(time.June, 28)},
			SupplierID:    "SUP-002",
			SupplierName:  "Aranda Industrial",
			Department:    "Operations",
			Currency:      "USD",
			Amount:        780,
			TotalAmount:   780,
			DisputeReason: "quantity mismatch against delivery note",
			IssueDate:     datePtr(seedDate(time.June, 26)),
			DisputedDate:  datePtr(seedDate(time.June, 28)),
		},
	}
}

func seedSuppliers() []*models.Supplier {
	return []*models.Supplier{
		{
			Meta:          models.Meta{ID: "SUP-001", Status: models.SupplierActive, LastModified: seedDate(time.January, 8)},
			Name:          "Northgate IT Supply",
			Category:      "IT hardware",
			ContactPerson: "Lena Kowalski",
			Email:         "sales@northgate-it.example",
			Phone:         "+1 555 014 1120",
			Rating:        4.4,
			Address:       models.Address{City: "Austin", State: "TX", Country: "US"},
			BankDetails:   models.BankDetails{BankName: "First Meridian", AccountNumber: "90211442"},
			OnboardedDate: datePtr(seedDate(time.January, 8)),
		},
		{
			Meta:          models.Meta{ID: "SUP-002", Status: models.SupplierActive, LastModified: seedDate(time.February, 17)},
			Name:          "Aranda Industrial",
			Category:      "Facilities",
			ContactPerson: "Tomás Rey",
			Email:         "orders@aranda-industrial.example",
			Rating:        3.9,
			Address:       models.Address{City: "Monterrey", Country: "MX"},
			OnboardedDate: datePtr(seedDate(time.February, 17)),
		},
		{
			Meta:          models.Meta{ID: "SUP-003", Status: models.SupplierSuspended, LastModified: seedDate(time.May, 30)},
			Name:          "Crestline Logistics",
			Category:      "Freight",
			Email:         "dispatch@crestline.example",
			Rating:        2.8,
			SuspendReason: "two missed delivery windows in May",
			OnboardedDate: datePtr(seedDate(time.March, 3)),
		},
	}
}

func seedContracts() []*models.Contract {
	return []*models.Contract{
		{
			Meta:          models.Meta{ID: "CTR-2026-0001", Status: models.ContractActive, LastModified: seedDate(time.January, 15)},
			Title:         "IT hardware framework agreement",
			SupplierID:    "SUP-001",
			SupplierName:  "Northgate IT Supply",
			Currency:      "USD",
			Value:         50000,
			StartDate:     datePtr(seedDate(time.January, 15)),
			EndDate:       datePtr(time.Date(2027, time.January, 14, 0, 0, 0, 0, time.UTC)),
			ActivatedDate: datePtr(seedDate(time.January, 15)),
			AutoRenew:     true,
		},
		{
			Meta:         models.Meta{ID: "CTR-2026-0002", Status: models.ContractDraft, LastModified: seedDate(time.June, 1)},
			Title:        "Facilities maintenance retainer",
			SupplierID:   "SUP-002",
			SupplierName: "Aranda Industrial",
			Currency:     "USD",
			Value:        24000,
		},
	}
}

func seedFlows() []*models.SupplyChainFlow {
	return []*models.SupplyChainFlow{
		{
			Meta:           models.Meta{ID: "FLOW-001", Status: models.FlowInTransit, LastModified: seedDate(time.June, 18)},
			OrderID:        "PO-2026-0001",
			Origin:         "Austin, TX",
			Destination:    "Portland, OR",
			Carrier:        "Crestline Logistics",
			TrackingNumber: "CL-88421-XK",
			ETA:            datePtr(seedDate(time.July, 2)),
			DispatchedDate: datePtr(seedDate(time.June, 18)),
		},
		{
			Meta:        models.Meta{ID: "FLOW-002", Status: models.FlowPlanned, LastModified: seedDate(time.June, 22)},
			OrderID:     "PO-2026-0002",
			Origin:      "Monterrey",
			Destination: "Portland, OR",
		},
	}
}
