// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes procurement tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rkreels/spendguard/internal/feed"
	"github.com/rkreels/spendguard/internal/models"
	"github.com/rkreels/spendguard/internal/procurement"
	"github.com/rkreels/spendguard/internal/store"
)

// Server wraps the MCP server with procurement tools.
type Server struct {
	mcp *server.MCPServer
	svc *procurement.Service
}

// New creates a new MCP server with all procurement tools registered.
func New(svc *procurement.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"SpendGuard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Substring search across procurement records (requisitions, purchase orders, invoices, suppliers, contracts, supply chain flows)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("entity", mcp.Description("Optional entity type to restrict the search: requisition, purchase_order, invoice, supplier, contract or supply_chain_flow")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read one procurement record by entity type and id."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity type tag (e.g. requisition, invoice)")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id (e.g. REQ-2026-0001)")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("create_requisition",
		mcp.WithDescription("Create a draft purchase requisition. Use the spendguard://id-schemes resource for the id and status conventions."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short requisition title")),
		mcp.WithString("department", mcp.Required(), mcp.Description("Requesting department")),
		mcp.WithString("requester", mcp.Required(), mcp.Description("Name of the requester")),
		mcp.WithString("description", mcp.Description("Optional longer description")),
		mcp.WithNumber("total_amount", mcp.Description("Total amount; defaults to 0 for requisitions priced later")),
	), s.createRequisition)

	s.mcp.AddTool(mcp.NewTool("transition_record",
		mcp.WithDescription("Apply a named status transition to a record (e.g. submit/approve/reject a requisition, pay an invoice). Illegal moves are refused."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity type tag")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Transition name, see spendguard://id-schemes")),
		mcp.WithString("reason", mcp.Description("Optional reason, recorded for reject/dispute/suspend/terminate/delay")),
		mcp.WithString("supplier_id", mcp.Description("Supplier id, used only by the requisition convert action")),
	), s.transitionRecord)

	s.mcp.AddTool(mcp.NewTool("related_entities",
		mcp.WithDescription("List the entities related to a record through the relationship graph, with edge direction and resolution state."),
		mcp.WithString("entity", mcp.Required(), mcp.Description("Entity type tag")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.relatedEntities)

	s.mcp.AddTool(mcp.NewTool("spend_guard_summary",
		mcp.WithDescription("The attention-items rollup: pending approvals, disputed invoices, delayed shipments, suspended suppliers, over-committed contracts and open order spend."),
	), s.spendGuardSummary)

	s.mcp.AddTool(mcp.NewTool("list_notifications",
		mcp.WithDescription("List feed notifications, most recent first."),
		mcp.WithBoolean("unread_only", mcp.Description("Restrict to unread entries")),
	), s.listNotifications)

	// Resource: id and status conventions.
	s.mcp.AddResource(
		mcp.NewResource("spendguard://id-schemes", "Record Conventions",
			mcp.WithResourceDescription("Entity type tags, id formats, statuses and legal transitions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readIDSchemesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// entityOrder fixes a stable iteration order for all-entity operations.
var entityOrder = []string{
	procurement.EntityRequisition,
	procurement.EntityOrder,
	procurement.EntityInvoice,
	procurement.EntitySupplier,
	procurement.EntityContract,
	procurement.EntityFlow,
}

func (s *Server) listEntity(entity string, q store.Query) ([]any, bool) {
	wrap := func(n int, at func(int) any) []any {
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, at(i))
		}
		return out
	}
	switch entity {
	case procurement.EntityRequisition:
		items := s.svc.Requisitions.List(q)
		return wrap(len(items), func(i int) any { return items[i] }), true
	case procurement.EntityOrder:
		items := s.svc.Orders.List(q)
		return wrap(len(items), func(i int) any { return items[i] }), true
	case procurement.EntityInvoice:
		items := s.svc.Invoices.List(q)
		return wrap(len(items), func(i int) any { return items[i] }), true
	case procurement.EntitySupplier:
		items := s.svc.Suppliers.List(q)
		return wrap(len(items), func(i int) any { return items[i] }), true
	case procurement.EntityContract:
		items := s.svc.Contracts.List(q)
		return wrap(len(items), func(i int) any { return items[i] }), true
	case procurement.EntityFlow:
		items := s.svc.Flows.List(q)
		return wrap(len(items), func(i int) any { return items[i] }), true
	}
	return nil, false
}

func (s *Server) getEntity(entity, id string) (any, bool, bool) {
	switch entity {
	case procurement.EntityRequisition:
		rec, ok := s.svc.Requisitions.Get(id)
		return rec, ok, true
	case procurement.EntityOrder:
		rec, ok := s.svc.Orders.Get(id)
		return rec, ok, true
	case procurement.EntityInvoice:
		rec, ok := s.svc.Invoices.Get(id)
		return rec, ok, true
	case procurement.EntitySupplier:
		rec, ok := s.svc.Suppliers.Get(id)
		return rec, ok, true
	case procurement.EntityContract:
		rec, ok := s.svc.Contracts.Get(id)
		return rec, ok, true
	case procurement.EntityFlow:
		rec, ok := s.svc.Flows.Get(id)
		return rec, ok, true
	}
	return nil, false, false
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entity := ""
	if e, err := req.RequireString("entity"); err == nil {
		entity = e
	}

	scope := entityOrder
	if entity != "" {
		if _, ok := s.listEntity(entity, store.Query{}); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown entity type: %s", entity)), nil
		}
		scope = []string{entity}
	}

	results := map[string][]any{}
	for _, e := range scope {
		items, _ := s.listEntity(e, store.Query{Search: query})
		if len(items) > 0 {
			results[e] = items
		}
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matching records"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, found, known := s.getEntity(entity, id)
	if !known {
		return mcp.NewToolResultError(fmt.Sprintf("unknown entity type: %s", entity)), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s %s", entity, id)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createRequisition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	department, err := req.RequireString("department")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	requester, err := req.RequireString("requester")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := &models.Requisition{
		Title:      title,
		Department: department,
		Requester:  requester,
	}
	if d, err := req.RequireString("description"); err == nil {
		r.Description = d
	}
	if amt, err := req.RequireFloat("total_amount"); err == nil {
		r.TotalAmount = amt
	}
	if err := r.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created := s.svc.CreateRequisition(r)
	out, _ := json.MarshalIndent(created, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) transitionRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reason := ""
	if v, err := req.RequireString("reason"); err == nil {
		reason = v
	}
	supplierID := ""
	if v, err := req.RequireString("supplier_id"); err == nil {
		supplierID = v
	}

	rec, err := s.dispatchTransition(entity, id, action, reason, supplierID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) dispatchTransition(entity, id, action, reason, supplierID string) (any, error) {
	type fn = func() (any, error)

	table := map[string]map[string]fn{
		procurement.EntityRequisition: {
			"submit":  func() (any, error) { return s.svc.SubmitRequisition(id) },
			"approve": func() (any, error) { return s.svc.ApproveRequisition(id) },
			"reject":  func() (any, error) { return s.svc.RejectRequisition(id, reason) },
			"cancel":  func() (any, error) { return s.svc.CancelRequisition(id) },
			"convert": func() (any, error) { return s.svc.ConvertRequisition(id, supplierID) },
		},
		procurement.EntityOrder: {
			"send":        func() (any, error) { return s.svc.SendOrder(id) },
			"acknowledge": func() (any, error) { return s.svc.AcknowledgeOrder(id) },
			"receive":     func() (any, error) { return s.svc.ReceiveOrder(id) },
			"cancel":      func() (any, error) { return s.svc.CancelOrder(id) },
		},
		procurement.EntityInvoice: {
			"approve": func() (any, error) { return s.svc.ApproveInvoice(id) },
			"pay":     func() (any, error) { return s.svc.PayInvoice(id) },
			"dispute": func() (any, error) { return s.svc.DisputeInvoice(id, reason) },
			"cancel":  func() (any, error) { return s.svc.CancelInvoice(id) },
		},
		procurement.EntitySupplier: {
			"activate":   func() (any, error) { return s.svc.ActivateSupplier(id) },
			"deactivate": func() (any, error) { return s.svc.DeactivateSupplier(id) },
			"suspend":    func() (any, error) { return s.svc.SuspendSupplier(id, reason) },
		},
		procurement.EntityContract: {
			"activate":  func() (any, error) { return s.svc.ActivateContract(id) },
			"expire":    func() (any, error) { return s.svc.ExpireContract(id) },
			"terminate": func() (any, error) { return s.svc.TerminateContract(id, reason) },
			"cancel":    func() (any, error) { return s.svc.CancelContract(id) },
		},
		procurement.EntityFlow: {
			"dispatch": func() (any, error) { return s.svc.DispatchFlow(id) },
			"delay":    func() (any, error) { return s.svc.DelayFlow(id, reason) },
			"resume":   func() (any, error) { return s.svc.ResumeFlow(id) },
			"deliver":  func() (any, error) { return s.svc.DeliverFlow(id) },
		},
	}

	actions, ok := table[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}
	f, ok := actions[action]
	if !ok {
		names := make([]string, 0, len(actions))
		for name := range actions {
			names = append(names, name)
		}
		return nil, fmt.Errorf("unknown action %q for %s, have: %s", action, entity, strings.Join(names, ", "))
	}
	return f()
}

func (s *Server) relatedEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := req.RequireString("entity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	related := s.svc.Related(entity, id)
	if len(related) == 0 {
		return mcp.NewToolResultText("no related entities"), nil
	}
	out, _ := json.MarshalIndent(related, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) spendGuardSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.SpendGuard(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotifications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flt := feed.Filter{}
	if req.GetBool("unread_only", false) {
		unread := false
		flt.IsRead = &unread
	}
	items := s.svc.Feed.Filtered(flt)
	if len(items) == 0 {
		return mcp.NewToolResultText("no notifications"), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readIDSchemesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "spendguard://id-schemes",
			MIMEType: "text/markdown",
			Text:     RecordConventions,
		},
	}, nil
}
