// Package store implements the generic entity collection: an in-memory array
// of records of one entity type with CRUD, filtered views, named status
// transitions and aggregate metrics, optionally backed by a persisted
// key-value store. Each entity type gets one Collection instantiated from a
// Config instead of a copy-pasted implementation.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/storage"
)

// Record is the envelope contract every collection record satisfies.
// models.Meta provides it via embedding.
type Record interface {
	GetID() string
	SetID(string)
	GetStatus() string
	SetStatus(string)
	SetLastModified(time.Time)
}

// Transition is one legal status move. Ops encode the one-way status
// vocabulary per entity type; an op whose From set does not contain the
// record's current status is rejected with apperr.ErrIllegalTransition.
type Transition struct {
	From  []string // legal predecessor statuses; empty means any
	To    string
	Stamp string // JSON field stamped with the transition time, optional
}

// Config parametrizes a Collection for one entity type.
type Config[T Record] struct {
	// Key is the collection name, also used as the storage key.
	Key string
	// New allocates an empty record; used when rehydrating patched records.
	New func() T
	// NewID builds a collection-specific human-readable id from the current
	// time and a running sequence number. Ids are never reused in a session.
	NewID func(now time.Time, seq int) string
	// DefaultStatus is applied on create when the caller left status empty.
	DefaultStatus string
	// SearchText returns the values the free-text search matches against.
	SearchText func(T) []string
	// FieldValue resolves a filter/sort key to a comparable string value.
	// "status" is resolved by the collection itself and never reaches here.
	FieldValue func(T, string) (string, bool)
	// Amount feeds the sum/average metrics; nil means no amount metrics.
	Amount func(T) float64
	// Transitions maps operation names (approve, pay, send, ...) to moves.
	Transitions map[string]Transition
	// Seed supplies demo records installed when the storage key is absent.
	Seed func() []T
	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// Query selects and orders a view of the collection. Search is a
// case-insensitive substring match over the searchable fields, AND'd with the
// exact-match Filters; a filter value of "all" or "" imposes no constraint.
type Query struct {
	Search  string
	Filters map[string]string
	SortBy  string
	SortDir string // "asc" (default) or "desc"
}

// Metrics is the aggregate view computed by a full scan on every call.
type Metrics struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	TotalAmount   float64        `json:"totalAmount"`
	AverageAmount float64        `json:"averageAmount"`
}

// Collection holds one entity type's records for the session.
//
// Every mutation re-persists the whole collection (serialize the entire
// array); there is no delta persistence. Mutations on unknown ids are silent
// no-ops except Transition, which is service-facing and reports.
type Collection[T Record] struct {
	cfg    Config[T]
	store  storage.Provider // nil means session-only
	logger *slog.Logger

	mu      sync.Mutex
	records []T
	seq     int
	loaded  bool
}

// New creates a collection. provider may be nil for a session-only store.
func New[T Record](cfg Config[T], provider storage.Provider, logger *slog.Logger) *Collection[T] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{cfg: cfg, store: provider, logger: logger, records: []T{}}
}

// Key returns the collection name / storage key.
func (c *Collection[T]) Key() string { return c.cfg.Key }

// ensureLoadedLocked lazily initializes the collection from the persisted
// store, or from seed data when the key is absent.
func (c *Collection[T]) ensureLoadedLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	if c.store != nil {
		data, err := c.store.Read(c.cfg.Key)
		if err == nil {
			var recs []T
			if uerr := json.Unmarshal(data, &recs); uerr != nil {
				c.logger.Warn("collection: corrupt stored value, starting empty",
					slog.String("key", c.cfg.Key), slog.String("error", uerr.Error()))
			} else {
				c.records = recs
				if c.records == nil {
					c.records = []T{}
				}
				c.seq = maxSeq(c.records)
				return
			}
		}
	}

	if c.cfg.Seed != nil {
		c.records = c.cfg.Seed()
		if c.records == nil {
			c.records = []T{}
		}
		c.seq = maxSeq(c.records)
		c.persistLocked()
	}
}

func (c *Collection[T]) persistLocked() {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(c.records)
	if err != nil {
		c.logger.Warn("collection: marshal failed", slog.String("key", c.cfg.Key), slog.String("error", err.Error()))
		return
	}
	if err := c.store.Write(c.cfg.Key, data); err != nil {
		c.logger.Warn("collection: persist failed", slog.String("key", c.cfg.Key), slog.String("error", err.Error()))
	}
}

// Create assigns a fresh id, stamps the modification time, appends the record
// and persists. It never fails for well-formed input; required-field presence
// is validated upstream at the API layer.
func (c *Collection[T]) Create(rec T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	now := c.cfg.Now()
	c.seq++
	rec.SetID(c.cfg.NewID(now, c.seq))
	if rec.GetStatus() == "" && c.cfg.DefaultStatus != "" {
		rec.SetStatus(c.cfg.DefaultStatus)
	}
	rec.SetLastModified(now)
	c.records = append(c.records, rec)
	c.persistLocked()
	return rec
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	if i := c.indexLocked(id); i >= 0 {
		return c.records[i], true
	}
	var zero T
	return zero, false
}

// Update shallow-merges patch into the matching record at the JSON level:
// nested objects and arrays present in the patch replace the stored value
// wholesale. The envelope fields "id", "lastModified" and "status" in a
// patch are ignored; lastModified is re-stamped by the store, and status
// moves only through Transition. Unknown ids are a silent no-op.
func (c *Collection[T]) Update(id string, patch map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	i := c.indexLocked(id)
	if i < 0 {
		return
	}
	c.applyPatchLocked(i, patch, c.cfg.Now())
	c.persistLocked()
}

// Delete removes the record with the given id. No-op if absent. Relationship
// edges referencing the id are not touched; dangling references are resolved
// leniently by consumers.
func (c *Collection[T]) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	i := c.indexLocked(id)
	if i < 0 {
		return
	}
	c.records = append(c.records[:i], c.records[i+1:]...)
	c.persistLocked()
}

// Transition applies the named status operation. Unlike raw Update/Delete it
// reports: apperr.ErrNotFound for unknown ids, apperr.ErrIllegalTransition
// when the record's current status is not a legal predecessor.
func (c *Collection[T]) Transition(id, op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	tr, ok := c.cfg.Transitions[op]
	if !ok {
		return fmt.Errorf("%s: unknown operation %q", c.cfg.Key, op)
	}
	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c.cfg.Key, id, apperr.ErrNotFound)
	}
	cur := c.records[i].GetStatus()
	if len(tr.From) > 0 && !slices.Contains(tr.From, cur) {
		return fmt.Errorf("%s %s: %s from %q: %w", c.cfg.Key, id, op, cur, apperr.ErrIllegalTransition)
	}

	now := c.cfg.Now()
	patch := map[string]any{}
	if tr.Stamp != "" {
		patch[tr.Stamp] = now.Format(time.RFC3339Nano)
	}
	c.applyPatchLocked(i, patch, now)
	// Status is set directly; applyPatchLocked drops "status" keys so the
	// generic patch path cannot move it.
	c.records[i].SetStatus(tr.To)
	c.persistLocked()
	return nil
}

// List returns the records matching q in insertion order (or sorted when
// q.SortBy is set). The returned slice is freshly allocated on every call.
func (c *Collection[T]) List(q Query) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	out := make([]T, 0, len(c.records))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, rec := range c.records {
		if needle != "" && !c.matchesSearch(rec, needle) {
			continue
		}
		if !c.matchesFilters(rec, q.Filters) {
			continue
		}
		out = append(out, rec)
	}

	if q.SortBy != "" {
		c.sortRecords(out, q.SortBy, q.SortDir)
	}
	return out
}

// Metrics scans the full collection and computes the aggregate view. O(n)
// per call, no caching; fine at the volumes involved.
func (c *Collection[T]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoadedLocked()

	m := Metrics{Total: len(c.records), ByStatus: make(map[string]int)}
	for _, rec := range c.records {
		m.ByStatus[rec.GetStatus()]++
		if c.cfg.Amount != nil {
			m.TotalAmount += c.cfg.Amount(rec)
		}
	}
	if c.cfg.Amount != nil && m.Total > 0 {
		m.AverageAmount = m.TotalAmount / float64(m.Total)
	}
	return m
}

// Replace swaps the whole collection, used when the storage watcher observes
// an external write (last writer wins). The records came from disk, so no
// write-back happens.
func (c *Collection[T]) Replace(recs []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if recs == nil {
		recs = []T{}
	}
	c.records = recs
	c.seq = maxSeq(recs)
	c.loaded = true
}

// Reload re-reads the collection from the persisted store, dropping the
// in-memory state. No-op for session-only collections.
func (c *Collection[T]) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return
	}
	data, err := c.store.Read(c.cfg.Key)
	if err != nil {
		return
	}
	var recs []T
	if err := json.Unmarshal(data, &recs); err != nil {
		c.logger.Warn("collection: reload failed", slog.String("key", c.cfg.Key), slog.String("error", err.Error()))
		return
	}
	if recs == nil {
		recs = []T{}
	}
	c.records = recs
	c.seq = maxSeq(recs)
	c.loaded = true
}

func (c *Collection[T]) indexLocked(id string) int {
	for i, rec := range c.records {
		if rec.GetID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) applyPatchLocked(idx int, patch map[string]any, now time.Time) {
	rec := c.records[idx]
	raw, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn("collection: patch marshal failed", slog.String("key", c.cfg.Key), slog.String("error", err.Error()))
		return
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		c.logger.Warn("collection: patch unmarshal failed", slog.String("key", c.cfg.Key), slog.String("error", err.Error()))
		return
	}
	for k, v := range patch {
		if k == "id" || k == "lastModified" || k == "status" {
			continue
		}
		m[k] = v
	}
	merged, err := json.Marshal(m)
	if err != nil {
		c.logger.Warn("collection: patch remarshal failed", slog.String("key", c.cfg.Key), slog.String("error", err.Error()))
		return
	}
	fresh := c.cfg.New()
	if err := json.Unmarshal(merged, fresh); err != nil {
		c.logger.Warn("collection: patch rejected", slog.String("key", c.cfg.Key), slog.String("id", rec.GetID()), slog.String("error", err.Error()))
		return
	}
	fresh.SetID(rec.GetID())
	fresh.SetLastModified(now)
	c.records[idx] = fresh
}

func (c *Collection[T]) matchesSearch(rec T, needle string) bool {
	if c.cfg.SearchText == nil {
		return false
	}
	for _, field := range c.cfg.SearchText(rec) {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (c *Collection[T]) matchesFilters(rec T, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" || want == "all" {
			continue
		}
		got, ok := c.fieldValue(rec, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (c *Collection[T]) fieldValue(rec T, key string) (string, bool) {
	if key == "status" {
		return rec.GetStatus(), true
	}
	if c.cfg.FieldValue == nil {
		return "", false
	}
	return c.cfg.FieldValue(rec, key)
}

// sortRecords orders by the resolved field value, numerically when both sides
// parse as numbers, lexically otherwise. The sort is stable, so ties keep
// insertion order; no tie-break is part of the contract.
func (c *Collection[T]) sortRecords(recs []T, key, dir string) {
	desc := dir == "desc"
	sort.SliceStable(recs, func(i, j int) bool {
		a, _ := c.fieldValue(recs[i], key)
		b, _ := c.fieldValue(recs[j], key)
		less := lessValues(a, b)
		if desc {
			return lessValues(b, a)
		}
		return less
	})
}

func lessValues(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

// maxSeq extracts the largest trailing sequence number among the ids so new
// ids keep counting up after a reload. Ids without a numeric tail count as 0.
func maxSeq[T Record](recs []T) int {
	max := 0
	for _, rec := range recs {
		if n := trailingSeq(rec.GetID()); n > max {
			max = n
		}
	}
	return max
}

func trailingSeq(id string) int {
	if i := strings.LastIndexByte(id, '-'); i >= 0 {
		id = id[i+1:]
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}
