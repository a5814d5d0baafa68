package procurement

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/feed"
	"github.com/rkreels/spendguard/internal/graph"
	"github.com/rkreels/spendguard/internal/models"
	"github.com/rkreels/spendguard/internal/storage"
	"github.com/rkreels/spendguard/internal/store"
)

// Broadcaster receives store change events, normally the SSE broker.
type Broadcaster interface {
	PublishEntityEvent(kind, entity, id string)
}

// Service is the domain facade over the six entity collections, the
// relationship graph and the notification feed.
type Service struct {
	Requisitions *store.Collection[*models.Requisition]
	Orders       *store.Collection[*models.PurchaseOrder]
	Invoices     *store.Collection[*models.Invoice]
	Suppliers    *store.Collection[*models.Supplier]
	Contracts    *store.Collection[*models.Contract]
	Flows        *store.Collection[*models.SupplyChainFlow]
	Graph        *graph.Store
	Feed         *feed.Feed

	broker Broadcaster
	logger *slog.Logger
	now    func() time.Time
}

// Option is a functional option for the service.
type Option func(*options)

type options struct {
	now    func() time.Time
	seed   bool
	broker Broadcaster
}

// WithClock injects the clock used by all stores.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSeedData enables demo seed records for collections whose storage key is
// absent.
func WithSeedData(enabled bool) Option {
	return func(o *options) { o.seed = enabled }
}

// WithBroadcaster wires store changes to an event broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(o *options) { o.broker = b }
}

// NewService builds the service on the given persistence provider. provider
// may be nil for a session-only service (the tests' default).
func NewService(provider storage.Provider, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		Requisitions: store.New(requisitionConfig(o.now, o.seed), provider, logger),
		Orders:       store.New(orderConfig(o.now, o.seed), provider, logger),
		Invoices:     store.New(invoiceConfig(o.now, o.seed), provider, logger),
		Suppliers:    store.New(supplierConfig(o.now, o.seed), provider, logger),
		Contracts:    store.New(contractConfig(o.now, o.seed), provider, logger),
		Flows:        store.New(flowConfig(o.now, o.seed), provider, logger),
		Graph:        graph.New(provider, logger, graph.WithClock(o.now)),
		Feed:         feed.New(provider, logger, feed.WithClock(o.now)),
		broker:       o.broker,
		logger:       logger,
		now:          o.now,
	}
	return s
}

func (s *Service) publish(kind, entity, id string) {
	if s.broker != nil {
		s.broker.PublishEntityEvent(kind, entity, id)
	}
}

func (s *Service) notify(n feed.Notification) {
	s.Feed.Add(n)
}

// createIn, patchIn and transitionIn are the shared mutation paths: the
// collection does the work, the service layers on existence reporting and
// event publishing.

func createIn[T store.Record](s *Service, c *store.Collection[T], entity string, rec T) T {
	out := c.Create(rec)
	s.publish("created", entity, out.GetID())
	return out
}

func patchIn[T store.Record](s *Service, c *store.Collection[T], entity, id string, patch map[string]any) (T, error) {
	if _, ok := c.Get(id); !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", entity, id, apperr.ErrNotFound)
	}
	c.Update(id, patch)
	rec, _ := c.Get(id)
	s.publish("updated", entity, id)
	return rec, nil
}

func deleteIn[T store.Record](s *Service, c *store.Collection[T], entity, id string) error {
	if _, ok := c.Get(id); !ok {
		return fmt.Errorf("%s %s: %w", entity, id, apperr.ErrNotFound)
	}
	c.Delete(id)
	s.publish("deleted", entity, id)
	return nil
}

func transitionIn[T store.Record](s *Service, c *store.Collection[T], entity, id, op string) (T, error) {
	if err := c.Transition(id, op); err != nil {
		var zero T
		return zero, err
	}
	rec, _ := c.Get(id)
	s.publish("updated", entity, id)
	return rec, nil
}

// --- Requisitions ---

// CreateRequisition appends a new requisition. Line-item totals are assumed
// normalized by the caller (the API layer).
func (s *Service) CreateRequisition(r *models.Requisition) *models.Requisition {
	return createIn(s, s.Requisitions, EntityRequisition, r)
}

// UpdateRequisition shallow-merges patch; 404s on unknown id.
func (s *Service) UpdateRequisition(id string, patch map[string]any) (*models.Requisition, error) {
	return patchIn(s, s.Requisitions, EntityRequisition, id, patch)
}

// DeleteRequisition removes the record; relationship edges stay behind.
func (s *Service) DeleteRequisition(id string) error {
	return deleteIn(s, s.Requisitions, EntityRequisition, id)
}

// SubmitRequisition moves draft -> pending and raises an approval request.
func (s *Service) SubmitRequisition(id string) (*models.Requisition, error) {
	r, err := transitionIn(s, s.Requisitions, EntityRequisition, id, "submit")
	if err != nil {
		return nil, err
	}
	s.notify(feed.Notification{
		Type:       feed.TypeApprovalRequest,
		Title:      "Requisition submitted",
		Message:    fmt.Sprintf("%s (%s) awaits approval.", r.Title, r.ID),
		Priority:   feed.PriorityHigh,
		EntityType: EntityRequisition,
		EntityID:   r.ID,
		Department: r.Department,
		ActionURL:  "/requisitions/" + r.ID,
	})
	return r, nil
}

// ApproveRequisition moves pending -> approved.
func (s *Service) ApproveRequisition(id string) (*models.Requisition, error) {
	r, err := transitionIn(s, s.Requisitions, EntityRequisition, id, "approve")
	if err != nil {
		return nil, err
	}
	s.notify(feed.Notification{
		Type:       feed.TypeStatusChange,
		Title:      "Requisition approved",
		Message:    fmt.Sprintf("%s was approved.", r.ID),
		EntityType: EntityRequisition,
		EntityID:   r.ID,
		Department: r.Department,
	})
	return r, nil
}

// RejectRequisition moves pending -> rejected, recording the reason.
func (s *Service) RejectRequisition(id, reason string) (*models.Requisition, error) {
	if _, err := transitionIn(s, s.Requisitions, EntityRequisition, id, "reject"); err != nil {
		return nil, err
	}
	if reason != "" {
		s.Requisitions.Update(id, map[string]any{"rejectionReason": reason})
	}
	r, _ := s.Requisitions.Get(id)
	return r, nil
}

// CancelRequisition moves draft or pending -> cancelled.
func (s *Service) CancelRequisition(id string) (*models.Requisition, error) {
	return transitionIn(s, s.Requisitions, EntityRequisition, id, "cancel")
}

// ConvertRequisition turns an approved requisition into a draft purchase
// order carrying its line items, linked back with a derived_from edge whose
// metadata carries the order amount.
func (s *Service) ConvertRequisition(id, supplierID string) (*models.PurchaseOrder, error) {
	req, ok := s.Requisitions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", EntityRequisition, id, apperr.ErrNotFound)
	}
	if _, err := transitionIn(s, s.Requisitions, EntityRequisition, id, "convert"); err != nil {
		return nil, err
	}

	po := &models.PurchaseOrder{
		Department:  req.Department,
		Currency:    req.Currency,
		TotalAmount: req.TotalAmount,
		LineItems:   append([]models.LineItem(nil), req.LineItems...),
	}
	if supplierID != "" {
		if sup, ok := s.Suppliers.Get(supplierID); ok {
			po.SupplierID = sup.ID
			po.SupplierName = sup.Name
		}
	}
	po = createIn(s, s.Orders, EntityOrder, po)

	s.Graph.AddRelationship(EntityOrder, po.ID, EntityRequisition, req.ID, RelDerivedFrom,
		map[string]string{"amount": amountStr(po.TotalAmount)})
	if po.SupplierID != "" {
		s.Graph.AddRelationship(EntityOrder, po.ID, EntitySupplier, po.SupplierID, RelSuppliedBy, nil)
	}

	s.notify(feed.Notification{
		Type:       feed.TypeStatusChange,
		Title:      "Purchase order created",
		Message:    fmt.Sprintf("%s was converted to %s.", req.ID, po.ID),
		EntityType: EntityOrder,
		EntityID:   po.ID,
		Department: po.Department,
	})
	return po, nil
}

// --- Purchase orders ---

func (s *Service) CreateOrder(o *models.PurchaseOrder) *models.PurchaseOrder {
	return createIn(s, s.Orders, EntityOrder, o)
}

func (s *Service) UpdateOrder(id string, patch map[string]any) (*models.PurchaseOrder, error) {
	return patchIn(s, s.Orders, EntityOrder, id, patch)
}

func (s *Service) DeleteOrder(id string) error {
	return deleteIn(s, s.Orders, EntityOrder, id)
}

// SendOrder moves draft -> sent.
func (s *Service) SendOrder(id string) (*models.PurchaseOrder, error) {
	return transitionIn(s, s.Orders, EntityOrder, id, "send")
}

// AcknowledgeOrder moves sent -> acknowledged.
func (s *Service) AcknowledgeOrder(id string) (*models.PurchaseOrder, error) {
	return transitionIn(s, s.Orders, EntityOrder, id, "acknowledge")
}

// ReceiveOrder moves sent or acknowledged -> received.
func (s *Service) ReceiveOrder(id string) (*models.PurchaseOrder, error) {
	o, err := transitionIn(s, s.Orders, EntityOrder, id, "receive")
	if err != nil {
		return nil, err
	}
	s.notify(feed.Notification{
		Type:       feed.TypeDelivery,
		Title:      "Order received",
		Message:    fmt.Sprintf("%s was marked received.", o.ID),
		EntityType: EntityOrder,
		EntityID:   o.ID,
		Department: o.Department,
	})
	return o, nil
}

// CancelOrder moves draft or sent -> cancelled.
func (s *Service) CancelOrder(id string) (*models.PurchaseOrder, error) {
	return transitionIn(s, s.Orders, EntityOrder, id, "cancel")
}

// --- Invoices ---

// CreateInvoice appends an invoice. When OrderID is set, a billing_for edge
// links the invoice to the order and supplier fields default from the order
// when the caller left them empty. The order reference stays soft either way.
func (s *Service) CreateInvoice(inv *models.Invoice) *models.Invoice {
	if orderID := inv.OrderID; orderID != "" {
		if o, ok := s.Orders.Get(orderID); ok {
			if inv.SupplierID == "" {
				inv.SupplierID = o.SupplierID
			}
			if inv.SupplierName == "" {
				inv.SupplierName = o.SupplierName
			}
			if inv.Department == "" {
				inv.Department = o.Department
			}
		}
	}
	inv = createIn(s, s.Invoices, EntityInvoice, inv)
	if inv.OrderID != "" {
		s.Graph.AddRelationship(EntityInvoice, inv.ID, EntityOrder, inv.OrderID, RelBillingFor,
			map[string]string{"amount": amountStr(inv.TotalAmount)})
	}
	return inv
}

func (s *Service) UpdateInvoice(id string, patch map[string]any) (*models.Invoice, error) {
	return patchIn(s, s.Invoices, EntityInvoice, id, patch)
}

func (s *Service) DeleteInvoice(id string) error {
	return deleteIn(s, s.Invoices, EntityInvoice, id)
}

// ApproveInvoice moves pending or disputed -> approved.
func (s *Service) ApproveInvoice(id string) (*models.Invoice, error) {
	return transitionIn(s, s.Invoices, EntityInvoice, id, "approve")
}

// PayInvoice moves approved -> paid. Paying from any other status is an
// illegal transition.
func (s *Service) PayInvoice(id string) (*models.Invoice, error) {
	inv, err := transitionIn(s, s.Invoices, EntityInvoice, id, "pay")
	if err != nil {
		return nil, err
	}
	s.notify(feed.Notification{
		Type:       feed.TypePayment,
		Title:      "Invoice paid",
		Message:    fmt.Sprintf("%s (%s %.2f) was paid.", inv.ID, inv.Currency, inv.TotalAmount),
		EntityType: EntityInvoice,
		EntityID:   inv.ID,
		Department: inv.Department,
	})
	return inv, nil
}

// DisputeInvoice moves pending -> disputed, recording the reason.
func (s *Service) DisputeInvoice(id, reason string) (*models.Invoice, error) {
	inv, err := transitionIn(s, s.Invoices, EntityInvoice, id, "dispute")
	if err != nil {
		return nil, err
	}
	if reason != "" {
		s.Invoices.Update(id, map[string]any{"disputeReason": reason})
		inv, _ = s.Invoices.Get(id)
	}
	s.notify(feed.Notification{
		Type:       feed.TypeStatusChange,
		Title:      "Invoice disputed",
		Message:    fmt.Sprintf("%s is disputed: %s", inv.ID, inv.DisputeReason),
		Priority:   feed.PriorityHigh,
		EntityType: EntityInvoice,
		EntityID:   inv.ID,
		Department: inv.Department,
	})
	return inv, nil
}

// CancelInvoice moves pending or disputed -> cancelled.
func (s *Service) CancelInvoice(id string) (*models.Invoice, error) {
	return transitionIn(s, s.Invoices, EntityInvoice, id, "cancel")
}

// --- Suppliers ---

func (s *Service) CreateSupplier(sup *models.Supplier) *models.Supplier {
	return createIn(s, s.Suppliers, EntitySupplier, sup)
}

func (s *Service) UpdateSupplier(id string, patch map[string]any) (*models.Supplier, error) {
	return patchIn(s, s.Suppliers, EntitySupplier, id, patch)
}

func (s *Service) DeleteSupplier(id string) error {
	return deleteIn(s, s.Suppliers, EntitySupplier, id)
}

func (s *Service) ActivateSupplier(id string) (*models.Supplier, error) {
	return transitionIn(s, s.Suppliers, EntitySupplier, id, "activate")
}

func (s *Service) DeactivateSupplier(id string) (*models.Supplier, error) {
	return transitionIn(s, s.Suppliers, EntitySupplier, id, "deactivate")
}

// SuspendSupplier moves active -> suspended and records the reason.
func (s *Service) SuspendSupplier(id, reason string) (*models.Supplier, error) {
	sup, err := transitionIn(s, s.Suppliers, EntitySupplier, id, "suspend")
	if err != nil {
		return nil, err
	}
	if reason != "" {
		s.Suppliers.Update(id, map[string]any{"suspendReason": reason})
		sup, _ = s.Suppliers.Get(id)
	}
	s.notify(feed.Notification{
		Type:       feed.TypeSystem,
		Title:      "Supplier suspended",
		Message:    fmt.Sprintf("%s (%s) was suspended.", sup.Name, sup.ID),
		Priority:   feed.PriorityUrgent,
		EntityType: EntitySupplier,
		EntityID:   sup.ID,
	})
	return sup, nil
}

// --- Contracts ---

func (s *Service) CreateContract(c *models.Contract) *models.Contract {
	out := createIn(s, s.Contracts, EntityContract, c)
	if out.SupplierID != "" {
		s.Graph.AddRelationship(EntityContract, out.ID, EntitySupplier, out.SupplierID, RelSuppliedBy, nil)
	}
	return out
}

func (s *Service) UpdateContract(id string, patch map[string]any) (*models.Contract, error) {
	return patchIn(s, s.Contracts, EntityContract, id, patch)
}

func (s *Service) DeleteContract(id string) error {
	return deleteIn(s, s.Contracts, EntityContract, id)
}

func (s *Service) ActivateContract(id string) (*models.Contract, error) {
	return transitionIn(s, s.Contracts, EntityContract, id, "activate")
}

func (s *Service) ExpireContract(id string) (*models.Contract, error) {
	return transitionIn(s, s.Contracts, EntityContract, id, "expire")
}

// TerminateContract moves active -> terminated and records the reason.
func (s *Service) TerminateContract(id, reason string) (*models.Contract, error) {
	c, err := transitionIn(s, s.Contracts, EntityContract, id, "terminate")
	if err != nil {
		return nil, err
	}
	if reason != "" {
		s.Contracts.Update(id, map[string]any{"terminationReason": reason})
		c, _ = s.Contracts.Get(id)
	}
	return c, nil
}

func (s *Service) CancelContract(id string) (*models.Contract, error) {
	return transitionIn(s, s.Contracts, EntityContract, id, "cancel")
}

// --- Supply chain flows ---

// CreateFlow appends a flow; when OrderID is set a fulfills edge links it.
func (s *Service) CreateFlow(f *models.SupplyChainFlow) *models.SupplyChainFlow {
	f = createIn(s, s.Flows, EntityFlow, f)
	if f.OrderID != "" {
		s.Graph.AddRelationship(EntityFlow, f.ID, EntityOrder, f.OrderID, RelFulfills, nil)
	}
	return f
}

func (s *Service) UpdateFlow(id string, patch map[string]any) (*models.SupplyChainFlow, error) {
	return patchIn(s, s.Flows, EntityFlow, id, patch)
}

func (s *Service) DeleteFlow(id string) error {
	return deleteIn(s, s.Flows, EntityFlow, id)
}

func (s *Service) DispatchFlow(id string) (*models.SupplyChainFlow, error) {
	return transitionIn(s, s.Flows, EntityFlow, id, "dispatch")
}

// DelayFlow moves in_transit -> delayed and raises a delivery notification.
func (s *Service) DelayFlow(id, reason string) (*models.SupplyChainFlow, error) {
	f, err := transitionIn(s, s.Flows, EntityFlow, id, "delay")
	if err != nil {
		return nil, err
	}
	if reason != "" {
		s.Flows.Update(id, map[string]any{"delayReason": reason})
		f, _ = s.Flows.Get(id)
	}
	s.notify(feed.Notification{
		Type:       feed.TypeDelivery,
		Title:      "Shipment delayed",
		Message:    fmt.Sprintf("%s (%s to %s) is delayed.", f.ID, f.Origin, f.Destination),
		Priority:   feed.PriorityHigh,
		EntityType: EntityFlow,
		EntityID:   f.ID,
	})
	return f, nil
}

func (s *Service) ResumeFlow(id string) (*models.SupplyChainFlow, error) {
	return transitionIn(s, s.Flows, EntityFlow, id, "resume")
}

func (s *Service) DeliverFlow(id string) (*models.SupplyChainFlow, error) {
	return transitionIn(s, s.Flows, EntityFlow, id, "deliver")
}

// --- Relationships ---

// LinkEntities records a directed edge between two entities. No existence
// check on either endpoint: all references are soft.
func (s *Service) LinkEntities(fromType, fromID, toType, toID, relType string, metadata map[string]string) graph.Edge {
	e := s.Graph.AddRelationship(fromType, fromID, toType, toID, relType, metadata)
	s.publish("updated", fromType, fromID)
	return e
}

// Unlink deletes an edge by id.
func (s *Service) Unlink(edgeID string) {
	s.Graph.RemoveRelationship(edgeID)
}

// ReloadKey refreshes the in-memory state for one storage key after an
// external write (second console tab, manual edit of the data directory).
func (s *Service) ReloadKey(key string) {
	var entity string
	switch key {
	case KeyRequisitions:
		s.Requisitions.Reload()
		entity = EntityRequisition
	case KeyOrders:
		s.Orders.Reload()
		entity = EntityOrder
	case KeyInvoices:
		s.Invoices.Reload()
		entity = EntityInvoice
	case KeySuppliers:
		s.Suppliers.Reload()
		entity = EntitySupplier
	case KeyContracts:
		s.Contracts.Reload()
		entity = EntityContract
	case KeyFlows:
		s.Flows.Reload()
		entity = EntityFlow
	case graph.StorageKey:
		s.Graph.Reload()
		entity = "relationship"
	case feed.StorageKey:
		// Feed entries are append-mostly; lazy reads pick the file up on
		// next restart, so external feed edits are left alone.
		return
	default:
		s.logger.Debug("reload: unknown storage key", slog.String("key", key))
		return
	}
	s.publish("updated", entity, "")
}
