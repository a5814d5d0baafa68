package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rkreels/spendguard/internal/models"
	"github.com/rkreels/spendguard/internal/procurement"
	"github.com/rkreels/spendguard/internal/testutil"
)

func testServer(t *testing.T) (*Server, *procurement.Service) {
	t.Helper()

	svc := procurement.NewService(nil, testutil.Logger(),
		procurement.WithClock(testutil.FixedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))))
	srv := New(svc)
	return srv, svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// Since mcp-go doesn't expose a direct "call tool" test helper, we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_records":
		result, err = srv.searchRecords(ctx, req)
	case "get_record":
		result, err = srv.getRecord(ctx, req)
	case "create_requisition":
		result, err = srv.createRequisition(ctx, req)
	case "transition_record":
		result, err = srv.transitionRecord(ctx, req)
	case "related_entities":
		result, err = srv.relatedEntities(ctx, req)
	case "spend_guard_summary":
		result, err = srv.spendGuardSummary(ctx, req)
	case "list_notifications":
		result, err = srv.listNotifications(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetRecord(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_requisition", map[string]interface{}{
		"title":      "Standing desks",
		"department": "Facilities",
		"requester":  "Priya",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "REQ-2026-0001") {
		t.Errorf("create result = %q, want generated id", text)
	}

	r = callTool(t, srv, "get_record", map[string]interface{}{
		"entity": "requisition",
		"id":     "REQ-2026-0001",
	})
	if r.IsError {
		t.Fatalf("get failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Standing desks") {
		t.Errorf("get result = %q", resultText(r))
	}
}

func TestCreateRequisitionValidation(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_requisition", map[string]interface{}{
		"title": "No department",
	})
	if !r.IsError {
		t.Error("expected error for missing required fields")
	}
}

func TestGetRecordErrors(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_record", map[string]interface{}{
		"entity": "gadget", "id": "X-1",
	})
	if !r.IsError {
		t.Error("expected error for unknown entity type")
	}

	r = callTool(t, srv, "get_record", map[string]interface{}{
		"entity": "invoice", "id": "INV-2026-9999",
	})
	if !r.IsError {
		t.Error("expected error for missing record")
	}
}

func TestSearchRecords(t *testing.T) {
	srv, svc := testServer(t)
	svc.CreateRequisition(&models.Requisition{Title: "Ergonomic chairs", Department: "HR", Requester: "Sam"})
	svc.CreateSupplier(&models.Supplier{Name: "Chairworks Ltd", Email: "sales@chairworks.example"})

	r := callTool(t, srv, "search_records", map[string]interface{}{"query": "chair"})
	text := resultText(r)
	if !strings.Contains(text, "Ergonomic chairs") || !strings.Contains(text, "Chairworks Ltd") {
		t.Errorf("search across entities = %q", text)
	}

	r = callTool(t, srv, "search_records", map[string]interface{}{
		"query": "chair", "entity": "supplier",
	})
	text = resultText(r)
	if strings.Contains(text, "Ergonomic chairs") || !strings.Contains(text, "Chairworks Ltd") {
		t.Errorf("scoped search = %q", text)
	}

	r = callTool(t, srv, "search_records", map[string]interface{}{"query": "zzz-no-hit"})
	if resultText(r) != "no matching records" {
		t.Errorf("empty search = %q", resultText(r))
	}

	r = callTool(t, srv, "search_records", map[string]interface{}{
		"query": "chair", "entity": "gadget",
	})
	if !r.IsError {
		t.Error("expected error for unknown entity scope")
	}
}

func TestTransitionRecord(t *testing.T) {
	srv, svc := testServer(t)
	req := svc.CreateRequisition(&models.Requisition{Title: "Servers", Department: "IT", Requester: "Lee"})

	r := callTool(t, srv, "transition_record", map[string]interface{}{
		"entity": "requisition", "id": req.ID, "action": "submit",
	})
	if r.IsError {
		t.Fatalf("submit failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"pending"`) {
		t.Errorf("submit result = %q", resultText(r))
	}

	// pay is an invoice action, not a requisition action.
	r = callTool(t, srv, "transition_record", map[string]interface{}{
		"entity": "requisition", "id": req.ID, "action": "pay",
	})
	if !r.IsError {
		t.Error("expected error for unknown action")
	}

	// approve twice: the second is an illegal move.
	callTool(t, srv, "transition_record", map[string]interface{}{
		"entity": "requisition", "id": req.ID, "action": "approve",
	})
	r = callTool(t, srv, "transition_record", map[string]interface{}{
		"entity": "requisition", "id": req.ID, "action": "approve",
	})
	if !r.IsError {
		t.Error("expected error for illegal transition")
	}

	r = callTool(t, srv, "transition_record", map[string]interface{}{
		"entity": "gadget", "id": "X-1", "action": "submit",
	})
	if !r.IsError {
		t.Error("expected error for unknown entity type")
	}
}

func TestTransitionRecordConvert(t *testing.T) {
	srv, svc := testServer(t)
	sup := svc.CreateSupplier(&models.Supplier{Name: "Acme", Email: "acme@example.com"})
	req := svc.CreateRequisition(&models.Requisition{Title: "Cabling", Department: "IT", Requester: "Lee"})
	if _, err := svc.SubmitRequisition(req.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApproveRequisition(req.ID); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "transition_record", map[string]interface{}{
		"entity": "requisition", "id": req.ID, "action": "convert", "supplier_id": sup.ID,
	})
	if r.IsError {
		t.Fatalf("convert failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "PO-2026-0001") {
		t.Errorf("convert result = %q", resultText(r))
	}
}

func TestRelatedEntities(t *testing.T) {
	srv, svc := testServer(t)
	req := svc.CreateRequisition(&models.Requisition{Title: "Cabling", Department: "IT", Requester: "Lee"})
	if _, err := svc.SubmitRequisition(req.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ApproveRequisition(req.ID); err != nil {
		t.Fatal(err)
	}
	po, err := svc.ConvertRequisition(req.ID, "")
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "related_entities", map[string]interface{}{
		"entity": "requisition", "id": req.ID,
	})
	text := resultText(r)
	if !strings.Contains(text, po.ID) || !strings.Contains(text, "derived_from") {
		t.Errorf("related = %q", text)
	}

	r = callTool(t, srv, "related_entities", map[string]interface{}{
		"entity": "supplier", "id": "SUP-999",
	})
	if resultText(r) != "no related entities" {
		t.Errorf("unrelated = %q", resultText(r))
	}
}

func TestSpendGuardSummary(t *testing.T) {
	srv, svc := testServer(t)
	req := svc.CreateRequisition(&models.Requisition{Title: "Audit", Department: "Finance", Requester: "Kim"})
	if _, err := svc.SubmitRequisition(req.ID); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "spend_guard_summary", nil)
	text := resultText(r)
	if !strings.Contains(text, `"pendingRequisitions": 1`) {
		t.Errorf("summary = %q", text)
	}
}

func TestListNotifications(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "list_notifications", nil)
	if resultText(r) != "no notifications" {
		t.Errorf("empty feed = %q", resultText(r))
	}

	req := svc.CreateRequisition(&models.Requisition{Title: "Audit", Department: "Finance", Requester: "Kim"})
	if _, err := svc.SubmitRequisition(req.ID); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "list_notifications", map[string]interface{}{"unread_only": true})
	text := resultText(r)
	if !strings.Contains(text, "approval_request") {
		t.Errorf("notifications = %q", text)
	}
}

func TestIDSchemesResource(t *testing.T) {
	srv, _ := testServer(t)

	contents, err := srv.readIDSchemesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] = %T, want TextResourceContents", contents[0])
	}
	for _, want := range []string{"REQ-YYYY-NNNN", "pending", "derived_from"} {
		if !strings.Contains(tc.Text, want) {
			t.Errorf("resource missing %q", want)
		}
	}
}
