package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rkreels/spendguard/internal/models"
	"github.com/rkreels/spendguard/internal/procurement"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// dataRoot resolves the attachments directory.
func NewRouter(svc *procurement.Service, authEnabled bool, token string, sseHandler http.Handler, dataRoot string) chi.Router {
	rh := NewRelationshipHandler(svc)
	nh := NewNotificationHandler(svc.Feed)
	rep := NewReportHandler(svc)
	ah := NewAttachmentHandler(dataRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/requisitions", requisitionResource(svc).routes)
	r.Route("/orders", orderResource(svc).routes)
	r.Route("/invoices", invoiceResource(svc).routes)
	r.Route("/suppliers", func(cr chi.Router) {
		supplierResource(svc).routes(cr)
		cr.Get("/{id}/spend", rep.SupplierSpend)
	})
	r.Route("/contracts", func(cr chi.Router) {
		contractResource(svc).routes(cr)
		cr.Get("/{id}/utilization", rep.ContractUtilization)
	})
	r.Route("/flows", flowResource(svc).routes)

	// Relationship graph.
	r.Post("/relationships", rh.Link)
	r.Delete("/relationships/{edgeId}", rh.Unlink)
	r.Get("/relationships/{entity}/{id}", rh.Edges)
	r.Get("/related/{entity}/{id}", rh.Related)
	r.Get("/traverse/{entity}/{id}", rh.Traverse)

	// Notification feed.
	r.Get("/notifications", nh.List)
	r.Get("/notifications/stats", nh.Stats)
	r.Post("/notifications", nh.Create)
	r.Post("/notifications/read-all", nh.MarkAllRead)
	r.Post("/notifications/{id}/read", nh.MarkRead)
	r.Delete("/notifications/{id}", nh.Delete)

	// Rollup summary.
	r.Get("/spend-guard", rep.SpendGuard)

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// plain adapts a parameterless transition method into an action hook.
func plain[T any](fn func(id string) (T, error)) func(*http.Request, string) (any, error) {
	return func(_ *http.Request, id string) (any, error) { return fn(id) }
}

// reasoned adapts a transition that records an optional reason from the body.
func reasoned[T any](fn func(id, reason string) (T, error)) func(*http.Request, string) (any, error) {
	return func(r *http.Request, id string) (any, error) { return fn(id, actionBody(r).Reason) }
}

func requisitionResource(svc *procurement.Service) *entityResource[*models.Requisition] {
	return &entityResource[*models.Requisition]{
		name:    "requisition",
		col:     svc.Requisitions,
		filters: []string{"department", "requester", "priority"},
		decode:  decodeRequisition,
		create:  svc.CreateRequisition,
		update:  svc.UpdateRequisition,
		remove:  svc.DeleteRequisition,
		actions: map[string]func(*http.Request, string) (any, error){
			"submit":  plain(svc.SubmitRequisition),
			"approve": plain(svc.ApproveRequisition),
			"reject":  reasoned(svc.RejectRequisition),
			"cancel":  plain(svc.CancelRequisition),
			"convert": func(r *http.Request, id string) (any, error) {
				return svc.ConvertRequisition(id, actionBody(r).SupplierID)
			},
		},
	}
}

func orderResource(svc *procurement.Service) *entityResource[*models.PurchaseOrder] {
	return &entityResource[*models.PurchaseOrder]{
		name:    "order",
		col:     svc.Orders,
		filters: []string{"supplierId", "department"},
		decode:  decodeOrder,
		create:  svc.CreateOrder,
		update:  svc.UpdateOrder,
		remove:  svc.DeleteOrder,
		actions: map[string]func(*http.Request, string) (any, error){
			"send":        plain(svc.SendOrder),
			"acknowledge": plain(svc.AcknowledgeOrder),
			"receive":     plain(svc.ReceiveOrder),
			"cancel":      plain(svc.CancelOrder),
		},
	}
}

func invoiceResource(svc *procurement.Service) *entityResource[*models.Invoice] {
	return &entityResource[*models.Invoice]{
		name:    "invoice",
		col:     svc.Invoices,
		filters: []string{"supplierId", "department"},
		decode:  decodeInvoice,
		create:  svc.CreateInvoice,
		update:  svc.UpdateInvoice,
		remove:  svc.DeleteInvoice,
		actions: map[string]func(*http.Request, string) (any, error){
			"approve": plain(svc.ApproveInvoice),
			"pay":     plain(svc.PayInvoice),
			"dispute": reasoned(svc.DisputeInvoice),
			"cancel":  plain(svc.CancelInvoice),
		},
	}
}

func supplierResource(svc *procurement.Service) *entityResource[*models.Supplier] {
	return &entityResource[*models.Supplier]{
		name:    "supplier",
		col:     svc.Suppliers,
		filters: []string{"category"},
		decode:  decodeSupplier,
		create:  svc.CreateSupplier,
		update:  svc.UpdateSupplier,
		remove:  svc.DeleteSupplier,
		actions: map[string]func(*http.Request, string) (any, error){
			"activate":   plain(svc.ActivateSupplier),
			"deactivate": plain(svc.DeactivateSupplier),
			"suspend":    reasoned(svc.SuspendSupplier),
		},
	}
}

func contractResource(svc *procurement.Service) *entityResource[*models.Contract] {
	return &entityResource[*models.Contract]{
		name:    "contract",
		col:     svc.Contracts,
		filters: []string{"supplierId"},
		decode:  decodeContract,
		create:  svc.CreateContract,
		update:  svc.UpdateContract,
		remove:  svc.DeleteContract,
		actions: map[string]func(*http.Request, string) (any, error){
			"activate":  plain(svc.ActivateContract),
			"expire":    plain(svc.ExpireContract),
			"terminate": reasoned(svc.TerminateContract),
			"cancel":    plain(svc.CancelContract),
		},
	}
}

func flowResource(svc *procurement.Service) *entityResource[*models.SupplyChainFlow] {
	return &entityResource[*models.SupplyChainFlow]{
		name:    "flow",
		col:     svc.Flows,
		filters: []string{"orderId", "carrier"},
		decode:  decodeFlow,
		create:  svc.CreateFlow,
		update:  svc.UpdateFlow,
		remove:  svc.DeleteFlow,
		actions: map[string]func(*http.Request, string) (any, error){
			"dispatch": plain(svc.DispatchFlow),
			"delay":    reasoned(svc.DelayFlow),
			"resume":   plain(svc.ResumeFlow),
			"deliver":  plain(svc.DeliverFlow),
		},
	}
}
