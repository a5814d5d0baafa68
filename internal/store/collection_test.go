package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/storage"
)

// testItem is a minimal collection record for exercising the store without
// pulling in a real entity type.
type testItem struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	LastModified time.Time         `json:"lastModified"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Amount       float64           `json:"amount"`
	Labels       map[string]string `json:"labels,omitempty"`
}

func (t *testItem) GetID() string                { return t.ID }
func (t *testItem) SetID(id string)              { t.ID = id }
func (t *testItem) GetStatus() string            { return t.Status }
func (t *testItem) SetStatus(s string)           { t.Status = s }
func (t *testItem) SetLastModified(ts time.Time) { t.LastModified = ts }

func testClock() func() time.Time {
	cur := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		out := cur
		cur = cur.Add(time.Second)
		return out
	}
}

func testConfig() Config[*testItem] {
	return Config[*testItem]{
		Key:           "items",
		New:           func() *testItem { return &testItem{} },
		NewID:         func(now time.Time, seq int) string { return fmt.Sprintf("ITEM-%d-%04d", now.Year(), seq) },
		DefaultStatus: "draft",
		SearchText:    func(it *testItem) []string { return []string{it.ID, it.Name} },
		FieldValue: func(it *testItem, key string) (string, bool) {
			switch key {
			case "category":
				return it.Category, true
			case "name":
				return it.Name, true
			case "amount":
				return fmt.Sprintf("%g", it.Amount), true
			}
			return "", false
		},
		Amount: func(it *testItem) float64 { return it.Amount },
		Transitions: map[string]Transition{
			"submit":  {From: []string{"draft"}, To: "pending", Stamp: "submittedDate"},
			"approve": {From: []string{"pending"}, To: "approved"},
			"cancel":  {From: []string{"draft", "pending"}, To: "cancelled"},
		},
		Now: testClock(),
	}
}

func newTestCollection(t *testing.T) *Collection[*testItem] {
	t.Helper()
	return New(testConfig(), nil, nil)
}

func TestCreateAssignsIDsAndDefaults(t *testing.T) {
	c := newTestCollection(t)

	a := c.Create(&testItem{Name: "laptops"})
	b := c.Create(&testItem{Name: "chairs", Status: "pending"})

	if a.ID != "ITEM-2026-0001" {
		t.Errorf("first id = %q, want ITEM-2026-0001", a.ID)
	}
	if b.ID != "ITEM-2026-0002" {
		t.Errorf("second id = %q, want ITEM-2026-0002", b.ID)
	}
	if a.Status != "draft" {
		t.Errorf("default status = %q, want draft", a.Status)
	}
	if b.Status != "pending" {
		t.Errorf("explicit status = %q, want pending", b.Status)
	}
	if a.LastModified.IsZero() {
		t.Error("lastModified not stamped on create")
	}
}

func TestIDsNeverReusedAfterDelete(t *testing.T) {
	c := newTestCollection(t)

	a := c.Create(&testItem{Name: "one"})
	c.Create(&testItem{Name: "two"})
	c.Delete(a.ID)

	three := c.Create(&testItem{Name: "three"})
	if three.ID != "ITEM-2026-0003" {
		t.Errorf("id after delete = %q, want ITEM-2026-0003", three.ID)
	}
}

func TestUpdateShallowMerge(t *testing.T) {
	c := newTestCollection(t)
	it := c.Create(&testItem{Name: "laptops", Category: "it", Labels: map[string]string{"a": "1", "b": "2"}})

	c.Update(it.ID, map[string]any{
		"name":   "laptops (renewed)",
		"labels": map[string]string{"c": "3"},
	})

	got, ok := c.Get(it.ID)
	if !ok {
		t.Fatal("record vanished after update")
	}
	if got.Name != "laptops (renewed)" {
		t.Errorf("name = %q, not patched", got.Name)
	}
	if got.Category != "it" {
		t.Errorf("category = %q, untouched field changed", got.Category)
	}
	// Nested objects replace wholesale, no deep merge.
	if len(got.Labels) != 1 || got.Labels["c"] != "3" {
		t.Errorf("labels = %v, want wholesale replacement {c:3}", got.Labels)
	}
}

func TestUpdateIgnoresEnvelopeFields(t *testing.T) {
	c := newTestCollection(t)
	it := c.Create(&testItem{Name: "one"})
	before := it.LastModified

	c.Update(it.ID, map[string]any{
		"id":           "ITEM-9999-9999",
		"lastModified": "1999-01-01T00:00:00Z",
		"status":       "approved",
	})

	got, ok := c.Get(it.ID)
	if !ok {
		t.Fatal("record not found under original id")
	}
	if got.ID != it.ID {
		t.Errorf("id changed to %q via patch", got.ID)
	}
	if !got.LastModified.After(before) {
		t.Error("lastModified not re-stamped by the store")
	}
	if got.Status != "draft" {
		t.Errorf("status moved to %q via patch, want draft", got.Status)
	}
}

func TestUpdateEmptyPatchRestampsOnly(t *testing.T) {
	c := newTestCollection(t)
	it := c.Create(&testItem{Name: "one", Amount: 5})
	before := it.LastModified

	c.Update(it.ID, map[string]any{})

	got, _ := c.Get(it.ID)
	if got.Name != "one" || got.Amount != 5 {
		t.Errorf("empty patch changed fields: %+v", got)
	}
	if !got.LastModified.After(before) {
		t.Error("empty patch should still re-stamp lastModified")
	}
}

func TestUpdateAndDeleteUnknownIDAreSilent(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "one"})

	c.Update("ITEM-2026-9999", map[string]any{"name": "ghost"})
	c.Delete("ITEM-2026-9999")

	if got := c.Metrics().Total; got != 1 {
		t.Errorf("total = %d after no-op mutations, want 1", got)
	}
}

func TestTransition(t *testing.T) {
	c := newTestCollection(t)
	it := c.Create(&testItem{Name: "one"})

	if err := c.Transition(it.ID, "submit"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, _ := c.Get(it.ID)
	if got.Status != "pending" {
		t.Errorf("status = %q after submit, want pending", got.Status)
	}

	if err := c.Transition(it.ID, "approve"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ = c.Get(it.ID)
	if got.Status != "approved" {
		t.Errorf("status = %q after approve, want approved", got.Status)
	}
}

func TestTransitionIllegal(t *testing.T) {
	c := newTestCollection(t)
	it := c.Create(&testItem{Name: "one"})

	// approve requires pending; record is draft.
	err := c.Transition(it.ID, "approve")
	if !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}
	got, _ := c.Get(it.ID)
	if got.Status != "draft" {
		t.Errorf("status = %q after refused transition, want draft", got.Status)
	}
}

func TestTransitionUnknownIDAndOp(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "one"})

	if err := c.Transition("ITEM-2026-9999", "submit"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
	if err := c.Transition("ITEM-2026-0001", "frobnicate"); err == nil {
		t.Error("unknown op should error")
	}
}

func TestTransitionPersistsNewStatus(t *testing.T) {
	mem := storage.NewMemory()
	c := New(testConfig(), mem, nil)
	it := c.Create(&testItem{Name: "one"})

	if err := c.Transition(it.ID, "submit"); err != nil {
		t.Fatal(err)
	}
	data, err := mem.Read("items")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"pending"`) {
		t.Errorf("persisted value missing patched status: %s", data)
	}
}

func TestListSearch(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "Office Laptops"})
	c.Create(&testItem{Name: "Desk Chairs"})
	c.Create(&testItem{Name: "laptop chargers"})

	got := c.List(Query{Search: "LAPTOP"})
	if len(got) != 2 {
		t.Fatalf("search hits = %d, want 2", len(got))
	}
}

func TestListFilters(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "a", Category: "it"})
	c.Create(&testItem{Name: "b", Category: "facilities"})
	c.Create(&testItem{Name: "c", Category: "it", Status: "pending"})

	cases := []struct {
		name    string
		filters map[string]string
		want    int
	}{
		{"exact category", map[string]string{"category": "it"}, 2},
		{"all is unconstrained", map[string]string{"category": "all"}, 3},
		{"empty is unconstrained", map[string]string{"category": ""}, 3},
		{"status filter", map[string]string{"status": "pending"}, 1},
		{"combined", map[string]string{"category": "it", "status": "draft"}, 1},
		{"unknown filter key matches nothing", map[string]string{"nope": "x"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(c.List(Query{Filters: tc.filters})); got != tc.want {
				t.Errorf("hits = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestListSort(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "b", Amount: 20})
	c.Create(&testItem{Name: "a", Amount: 100})
	c.Create(&testItem{Name: "c", Amount: 3})

	byName := c.List(Query{SortBy: "name"})
	if byName[0].Name != "a" || byName[2].Name != "c" {
		t.Errorf("sort by name = %v %v %v", byName[0].Name, byName[1].Name, byName[2].Name)
	}

	// amount sorts numerically, not lexically (3 < 20 < 100).
	byAmount := c.List(Query{SortBy: "amount"})
	if byAmount[0].Amount != 3 || byAmount[2].Amount != 100 {
		t.Errorf("numeric sort = %v %v %v", byAmount[0].Amount, byAmount[1].Amount, byAmount[2].Amount)
	}

	desc := c.List(Query{SortBy: "amount", SortDir: "desc"})
	if desc[0].Amount != 100 {
		t.Errorf("desc sort first = %v, want 100", desc[0].Amount)
	}
}

func TestListReturnsFreshSlice(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "a"})
	c.Create(&testItem{Name: "b"})

	first := c.List(Query{})
	first[0], first[1] = first[1], first[0]

	second := c.List(Query{})
	if second[0].Name != "a" {
		t.Error("mutating a returned slice leaked into the collection")
	}
}

func TestMetrics(t *testing.T) {
	c := newTestCollection(t)
	c.Create(&testItem{Name: "a", Amount: 100})
	c.Create(&testItem{Name: "b", Amount: 50, Status: "pending"})
	c.Create(&testItem{Name: "c", Amount: 30, Status: "pending"})

	m := c.Metrics()
	if m.Total != 3 {
		t.Errorf("total = %d, want 3", m.Total)
	}
	if m.ByStatus["draft"] != 1 || m.ByStatus["pending"] != 2 {
		t.Errorf("byStatus = %v", m.ByStatus)
	}
	if m.TotalAmount != 180 {
		t.Errorf("totalAmount = %v, want 180", m.TotalAmount)
	}
	if m.AverageAmount != 60 {
		t.Errorf("averageAmount = %v, want 60", m.AverageAmount)
	}

	// ByStatus counts always sum to Total.
	sum := 0
	for _, n := range m.ByStatus {
		sum += n
	}
	if sum != m.Total {
		t.Errorf("byStatus sum = %d, total = %d", sum, m.Total)
	}
}

func TestMetricsEmpty(t *testing.T) {
	c := newTestCollection(t)
	m := c.Metrics()
	if m.Total != 0 || m.TotalAmount != 0 || m.AverageAmount != 0 {
		t.Errorf("empty metrics = %+v", m)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	mem := storage.NewMemory()

	c1 := New(testConfig(), mem, nil)
	created := c1.Create(&testItem{Name: "persisted", Amount: 42})

	// A second collection over the same provider sees the record and keeps
	// counting ids from where the first left off.
	c2 := New(testConfig(), mem, nil)
	got, ok := c2.Get(created.ID)
	if !ok {
		t.Fatalf("record %s not visible after reload", created.ID)
	}
	if got.Name != "persisted" || got.Amount != 42 {
		t.Errorf("reloaded record = %+v", got)
	}

	next := c2.Create(&testItem{Name: "after reload"})
	if next.ID != "ITEM-2026-0002" {
		t.Errorf("id after reload = %q, want ITEM-2026-0002", next.ID)
	}
}

func TestSeedInstalledWhenKeyAbsent(t *testing.T) {
	mem := storage.NewMemory()
	cfg := testConfig()
	cfg.Seed = func() []*testItem {
		return []*testItem{{ID: "ITEM-2026-0007", Status: "draft", Name: "seeded"}}
	}

	c := New(cfg, mem, nil)
	if got := c.Metrics().Total; got != 1 {
		t.Fatalf("seeded total = %d, want 1", got)
	}

	// Seed respects existing data: a second collection sees the persisted
	// seed, not a re-seed, and ids continue after the seed's sequence.
	next := c.Create(&testItem{Name: "new"})
	if next.ID != "ITEM-2026-0008" {
		t.Errorf("id after seed = %q, want ITEM-2026-0008", next.ID)
	}
}

func TestSeedSkippedWhenKeyPresent(t *testing.T) {
	mem := storage.NewMemory()
	if err := mem.Write("items", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Seed = func() []*testItem { return []*testItem{{ID: "ITEM-2026-0001", Name: "seeded"}} }

	c := New(cfg, mem, nil)
	if got := c.Metrics().Total; got != 0 {
		t.Errorf("total = %d, seed ran over an existing (empty) key", got)
	}
}

func TestCorruptStoredValueStartsEmpty(t *testing.T) {
	mem := storage.NewMemory()
	if err := mem.Write("items", []byte(`{not json`)); err != nil {
		t.Fatal(err)
	}

	c := New(testConfig(), mem, nil)
	if got := c.Metrics().Total; got != 0 {
		t.Errorf("total = %d over corrupt value, want 0", got)
	}
	// Still usable afterwards.
	if it := c.Create(&testItem{Name: "fresh"}); it.ID == "" {
		t.Error("create failed after corrupt load")
	}
}

func TestReload(t *testing.T) {
	mem := storage.NewMemory()
	c := New(testConfig(), mem, nil)
	c.Create(&testItem{Name: "original"})

	// External write, as if another process replaced the collection.
	ext := []byte(`[{"id":"ITEM-2026-0005","status":"pending","name":"external"}]`)
	if err := mem.Write("items", ext); err != nil {
		t.Fatal(err)
	}

	c.Reload()
	got, ok := c.Get("ITEM-2026-0005")
	if !ok {
		t.Fatal("external record not visible after reload")
	}
	if got.Name != "external" {
		t.Errorf("name = %q", got.Name)
	}
	if next := c.Create(&testItem{Name: "post"}); next.ID != "ITEM-2026-0006" {
		t.Errorf("seq after reload = %q, want ITEM-2026-0006", next.ID)
	}
}
