package procurement

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/feed"
	"github.com/rkreels/spendguard/internal/models"
	"github.com/rkreels/spendguard/internal/storage"
	"github.com/rkreels/spendguard/internal/testutil"
)

// recordingBroker captures published events for assertions.
type recordingBroker struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroker) PublishEntityEvent(kind, entity, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, kind+":"+entity+":"+id)
}

func (b *recordingBroker) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(nil, testutil.Logger(),
		WithClock(testutil.FixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))))
}

func TestSeedDataInstalls(t *testing.T) {
	svc := NewService(storage.NewMemory(), testutil.Logger(), WithSeedData(true))

	for name, total := range map[string]int{
		"requisitions": svc.Requisitions.Metrics().Total,
		"orders":       svc.Orders.Metrics().Total,
		"invoices":     svc.Invoices.Metrics().Total,
		"suppliers":    svc.Suppliers.Metrics().Total,
		"contracts":    svc.Contracts.Metrics().Total,
		"flows":        svc.Flows.Metrics().Total,
	} {
		if total == 0 {
			t.Errorf("%s: no seed records", name)
		}
	}
}

func TestRequisitionLifecycle(t *testing.T) {
	svc := newTestService(t)

	r := svc.CreateRequisition(&models.Requisition{Title: "Laptops", Department: "IT", Requester: "Dana"})
	if r.Status != models.RequisitionDraft {
		t.Fatalf("created status = %q", r.Status)
	}

	if _, err := svc.SubmitRequisition(r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApproveRequisition(r.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Requisitions.Get(r.ID)
	if got.Status != models.RequisitionApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.SubmittedDate == nil || got.ApprovedDate == nil {
		t.Error("transition date stamps missing")
	}

	// Approving twice is illegal.
	if _, err := svc.ApproveRequisition(r.ID); !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Errorf("double approve err = %v, want ErrIllegalTransition", err)
	}
}

func TestRejectRecordsReason(t *testing.T) {
	svc := newTestService(t)
	r := svc.CreateRequisition(&models.Requisition{Title: "Chairs", Department: "Facilities", Requester: "Sam"})
	if _, err := svc.SubmitRequisition(r.ID); err != nil {
		t.Fatal(err)
	}

	got, err := svc.RejectRequisition(r.ID, "over budget")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RequisitionRejected || got.RejectionReason != "over budget" {
		t.Errorf("rejected = %+v", got)
	}
}

func TestConvertRequisition(t *testing.T) {
	svc := newTestService(t)

	sup := svc.CreateSupplier(&models.Supplier{Name: "Acme Supplies"})
	r := svc.CreateRequisition(&models.Requisition{
		Title:      "Monitors",
		Department: "IT",
		Requester:  "Dana",
		Currency:   "USD",
		LineItems: []models.LineItem{
			{Description: "27in monitor", Quantity: 10, UnitPrice: 250, TotalPrice: 2500},
		},
		TotalAmount: 2500,
	})
	if _, err := svc.SubmitRequisition(r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApproveRequisition(r.ID); err != nil {
		t.Fatal(err)
	}

	po, err := svc.ConvertRequisition(r.ID, sup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if po.Status != models.OrderDraft {
		t.Errorf("order status = %q, want draft", po.Status)
	}
	if po.TotalAmount != 2500 || len(po.LineItems) != 1 {
		t.Errorf("order did not carry the requisition's items: %+v", po)
	}
	if po.SupplierID != sup.ID || po.SupplierName != "Acme Supplies" {
		t.Errorf("supplier not resolved: %+v", po)
	}

	reqAfter, _ := svc.Requisitions.Get(r.ID)
	if reqAfter.Status != models.RequisitionConverted {
		t.Errorf("requisition status = %q, want converted", reqAfter.Status)
	}

	// The edges: derived_from back to the requisition (with the amount in
	// metadata) and supplied_by to the supplier.
	related := svc.Related(EntityOrder, po.ID)
	byType := map[string]ResolvedRelated{}
	for _, rel := range related {
		byType[rel.RelationshipType] = rel
	}
	derived, ok := byType[RelDerivedFrom]
	if !ok {
		t.Fatal("derived_from edge missing")
	}
	if derived.ID != r.ID || !derived.Resolved {
		t.Errorf("derived_from = %+v", derived)
	}
	if derived.Metadata["amount"] != "2500" {
		t.Errorf("edge amount = %q, want 2500", derived.Metadata["amount"])
	}
	if supplied, ok := byType[RelSuppliedBy]; !ok || supplied.ID != sup.ID {
		t.Errorf("supplied_by edge = %+v", supplied)
	}

	// Converting a second time is illegal.
	if _, err := svc.ConvertRequisition(r.ID, ""); !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Errorf("double convert err = %v", err)
	}
}

func TestConvertUnknownRequisition(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.ConvertRequisition("REQ-2026-9999", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateInvoiceLinksAndDefaults(t *testing.T) {
	svc := newTestService(t)

	sup := svc.CreateSupplier(&models.Supplier{Name: "Acme"})
	po := svc.CreateOrder(&models.PurchaseOrder{
		SupplierID: sup.ID, SupplierName: "Acme", Department: "IT", TotalAmount: 900,
	})

	inv := svc.CreateInvoice(&models.Invoice{OrderID: po.ID, Amount: 900, TotalAmount: 900})
	if inv.SupplierID != sup.ID || inv.SupplierName != "Acme" || inv.Department != "IT" {
		t.Errorf("invoice did not inherit order fields: %+v", inv)
	}

	related := svc.Related(EntityInvoice, inv.ID)
	if len(related) != 1 || related[0].RelationshipType != RelBillingFor || related[0].ID != po.ID {
		t.Errorf("billing_for edge = %+v", related)
	}
}

func TestCreateInvoiceDanglingOrderRef(t *testing.T) {
	svc := newTestService(t)

	// The order reference is soft: an unknown order id still creates the
	// invoice and the edge, just with nothing to inherit.
	inv := svc.CreateInvoice(&models.Invoice{OrderID: "PO-2026-9999", TotalAmount: 100})
	if inv.ID == "" {
		t.Fatal("invoice not created")
	}
	related := svc.Related(EntityInvoice, inv.ID)
	if len(related) != 1 {
		t.Fatalf("related = %d, want the dangling edge", len(related))
	}
	if related[0].Resolved {
		t.Error("dangling reference reported as resolved")
	}
}

func TestPayInvoiceRequiresApproval(t *testing.T) {
	svc := newTestService(t)
	inv := svc.CreateInvoice(&models.Invoice{TotalAmount: 100})

	if _, err := svc.PayInvoice(inv.ID); !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("pay pending err = %v, want ErrIllegalTransition", err)
	}

	if _, err := svc.ApproveInvoice(inv.ID); err != nil {
		t.Fatal(err)
	}
	paid, err := svc.PayInvoice(inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != models.InvoicePaid || paid.PaidDate == nil {
		t.Errorf("paid = %+v", paid)
	}
}

func TestDisputeThenApprove(t *testing.T) {
	svc := newTestService(t)
	inv := svc.CreateInvoice(&models.Invoice{TotalAmount: 100})

	disputed, err := svc.DisputeInvoice(inv.ID, "quantity mismatch")
	if err != nil {
		t.Fatal(err)
	}
	if disputed.Status != models.InvoiceDisputed || disputed.DisputeReason != "quantity mismatch" {
		t.Errorf("disputed = %+v", disputed)
	}

	// A disputed invoice can be re-approved.
	if _, err := svc.ApproveInvoice(inv.ID); err != nil {
		t.Errorf("approve disputed: %v", err)
	}
}

func TestDeleteLeavesEdgesDangling(t *testing.T) {
	svc := newTestService(t)

	sup := svc.CreateSupplier(&models.Supplier{Name: "Acme"})
	ctr := svc.CreateContract(&models.Contract{Title: "Master agreement", SupplierID: sup.ID, Value: 10000})

	if err := svc.DeleteSupplier(sup.ID); err != nil {
		t.Fatal(err)
	}

	related := svc.Related(EntityContract, ctr.ID)
	if len(related) != 1 {
		t.Fatalf("related = %d, edge should survive the delete", len(related))
	}
	if related[0].Resolved {
		t.Error("deleted supplier still reported as resolved")
	}
}

func TestDeleteUnknownID(t *testing.T) {
	svc := newTestService(t)
	if err := svc.DeleteOrder("PO-2026-9999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestServiceNotifications(t *testing.T) {
	svc := newTestService(t)
	r := svc.CreateRequisition(&models.Requisition{Title: "Desks", Department: "Facilities", Requester: "Sam"})

	if _, err := svc.SubmitRequisition(r.ID); err != nil {
		t.Fatal(err)
	}

	items := svc.Feed.Filtered(feed.Filter{Type: feed.TypeApprovalRequest})
	if len(items) != 1 {
		t.Fatalf("approval notifications = %d, want 1", len(items))
	}
	n := items[0]
	if n.EntityType != EntityRequisition || n.EntityID != r.ID {
		t.Errorf("notification entity ref = %+v", n)
	}
	if n.Priority != feed.PriorityHigh {
		t.Errorf("priority = %q, want high", n.Priority)
	}
}

func TestSuspendSupplierRaisesUrgent(t *testing.T) {
	svc := newTestService(t)
	sup := svc.CreateSupplier(&models.Supplier{Name: "Flaky Corp"})

	got, err := svc.SuspendSupplier(sup.ID, "failed audit")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SupplierSuspended || got.SuspendReason != "failed audit" {
		t.Errorf("suspended = %+v", got)
	}
	if st := svc.Feed.Stats(); st.UrgentUnread != 1 {
		t.Errorf("urgentUnread = %d, want 1", st.UrgentUnread)
	}
}

func TestBroadcasterReceivesEvents(t *testing.T) {
	b := &recordingBroker{}
	svc := NewService(nil, testutil.Logger(), WithBroadcaster(b))

	r := svc.CreateRequisition(&models.Requisition{Title: "X", Department: "IT", Requester: "Dana"})
	if _, err := svc.UpdateRequisition(r.ID, map[string]any{"title": "Y"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteRequisition(r.ID); err != nil {
		t.Fatal(err)
	}

	events := b.all()
	want := []string{
		"created:requisition:" + r.ID,
		"updated:requisition:" + r.ID,
		"deleted:requisition:" + r.ID,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestContractUtilization(t *testing.T) {
	svc := newTestService(t)

	ctr := svc.CreateContract(&models.Contract{Title: "Hardware supply", Value: 10000})
	if _, err := svc.ActivateContract(ctr.ID); err != nil {
		t.Fatal(err)
	}

	po1 := svc.CreateOrder(&models.PurchaseOrder{TotalAmount: 6000})
	po2 := svc.CreateOrder(&models.PurchaseOrder{TotalAmount: 3500})
	svc.LinkEntities(EntityOrder, po1.ID, EntityContract, ctr.ID, RelGovernedBy, map[string]string{"amount": "6000"})
	svc.LinkEntities(EntityOrder, po2.ID, EntityContract, ctr.ID, RelGovernedBy, map[string]string{"amount": "3500"})

	u, err := svc.ContractUtilizationFor(ctr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Committed != 9500 || u.LinkedOrders != 2 {
		t.Errorf("utilization = %+v", u)
	}
	if u.Utilization != 0.95 {
		t.Errorf("ratio = %v, want 0.95", u.Utilization)
	}

	// 95% of value crosses the over-commit threshold.
	rep := svc.SpendGuard()
	if len(rep.OverCommittedContracts) != 1 || rep.OverCommittedContracts[0].ContractID != ctr.ID {
		t.Errorf("overCommitted = %+v", rep.OverCommittedContracts)
	}
}

func TestContractUtilizationIgnoresBadMetadata(t *testing.T) {
	svc := newTestService(t)
	ctr := svc.CreateContract(&models.Contract{Title: "Misc", Value: 1000})
	po := svc.CreateOrder(&models.PurchaseOrder{TotalAmount: 100})
	svc.LinkEntities(EntityOrder, po.ID, EntityContract, ctr.ID, RelGovernedBy, map[string]string{"amount": "not-a-number"})

	u, err := svc.ContractUtilizationFor(ctr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Committed != 0 || u.LinkedOrders != 1 {
		t.Errorf("utilization = %+v, non-numeric amount should count as 0", u)
	}
}

func TestSupplierSpend(t *testing.T) {
	svc := newTestService(t)
	sup := svc.CreateSupplier(&models.Supplier{Name: "Acme"})

	paid := svc.CreateInvoice(&models.Invoice{SupplierID: sup.ID, TotalAmount: 500})
	if _, err := svc.ApproveInvoice(paid.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.PayInvoice(paid.ID); err != nil {
		t.Fatal(err)
	}
	svc.CreateInvoice(&models.Invoice{SupplierID: sup.ID, TotalAmount: 300})

	po := svc.CreateOrder(&models.PurchaseOrder{SupplierID: sup.ID, TotalAmount: 800})
	if _, err := svc.SendOrder(po.ID); err != nil {
		t.Fatal(err)
	}

	spend, err := svc.SupplierSpendFor(sup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if spend.Paid != 500 || spend.Outstanding != 300 {
		t.Errorf("spend = %+v", spend)
	}
	if spend.Invoices != 2 || spend.OpenOrders != 1 {
		t.Errorf("counts = %+v", spend)
	}
}

func TestSpendGuardReport(t *testing.T) {
	svc := newTestService(t)

	r := svc.CreateRequisition(&models.Requisition{Title: "A", Department: "IT", Requester: "D"})
	if _, err := svc.SubmitRequisition(r.ID); err != nil {
		t.Fatal(err)
	}

	inv := svc.CreateInvoice(&models.Invoice{TotalAmount: 100})
	if _, err := svc.DisputeInvoice(inv.ID, "bad quantity"); err != nil {
		t.Fatal(err)
	}

	f := svc.CreateFlow(&models.SupplyChainFlow{Origin: "Hamburg", Destination: "Oslo"})
	if _, err := svc.DispatchFlow(f.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DelayFlow(f.ID, "port strike"); err != nil {
		t.Fatal(err)
	}

	sup := svc.CreateSupplier(&models.Supplier{Name: "Flaky"})
	if _, err := svc.SuspendSupplier(sup.ID, "audit"); err != nil {
		t.Fatal(err)
	}

	po := svc.CreateOrder(&models.PurchaseOrder{TotalAmount: 1200})
	if _, err := svc.SendOrder(po.ID); err != nil {
		t.Fatal(err)
	}

	rep := svc.SpendGuard()
	if rep.PendingRequisitions != 1 {
		t.Errorf("pendingRequisitions = %d", rep.PendingRequisitions)
	}
	if len(rep.DisputedInvoices) != 1 || rep.DisputedInvoices[0] != inv.ID {
		t.Errorf("disputedInvoices = %v", rep.DisputedInvoices)
	}
	if len(rep.DelayedFlows) != 1 || rep.DelayedFlows[0] != f.ID {
		t.Errorf("delayedFlows = %v", rep.DelayedFlows)
	}
	if len(rep.SuspendedSuppliers) != 1 || rep.SuspendedSuppliers[0] != sup.ID {
		t.Errorf("suspendedSuppliers = %v", rep.SuspendedSuppliers)
	}
	if rep.OpenOrderSpend != 1200 {
		t.Errorf("openOrderSpend = %v", rep.OpenOrderSpend)
	}
	if rep.UnreadUrgent == 0 {
		t.Error("unreadUrgent = 0, supplier suspension should count")
	}
}

func TestFlowLifecycle(t *testing.T) {
	svc := newTestService(t)
	po := svc.CreateOrder(&models.PurchaseOrder{TotalAmount: 10})
	f := svc.CreateFlow(&models.SupplyChainFlow{Origin: "A", Destination: "B", OrderID: po.ID})

	// fulfills edge from creation.
	related := svc.Related(EntityFlow, f.ID)
	if len(related) != 1 || related[0].RelationshipType != RelFulfills {
		t.Errorf("fulfills edge = %+v", related)
	}

	if _, err := svc.DispatchFlow(f.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DelayFlow(f.ID, "weather"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ResumeFlow(f.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.DeliverFlow(f.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.FlowDelivered || got.DeliveredDate == nil {
		t.Errorf("delivered = %+v", got)
	}
}

func TestReloadKey(t *testing.T) {
	mem := storage.NewMemory()
	b := &recordingBroker{}
	svc := NewService(mem, testutil.Logger(), WithBroadcaster(b))
	svc.CreateRequisition(&models.Requisition{Title: "One", Department: "IT", Requester: "D"})

	// External truncate, then reload through the watcher path.
	if err := mem.Write(KeyRequisitions, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	svc.ReloadKey(KeyRequisitions)

	if got := svc.Requisitions.Metrics().Total; got != 0 {
		t.Errorf("total = %d after external truncate, want 0", got)
	}

	// The reload event carries the entity tag, same vocabulary as every
	// other broadcast, not the storage key.
	events := b.all()
	if len(events) == 0 || events[len(events)-1] != "updated:requisition:" {
		t.Errorf("events = %v, want trailing updated:requisition:", events)
	}

	// Unknown keys are ignored.
	svc.ReloadKey("unrelated")
	if got := b.all(); len(got) != len(events) {
		t.Errorf("unknown key published %v", got[len(events):])
	}
}
