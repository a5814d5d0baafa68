// Package feed maintains the reverse-chronological notification feed with
// read/unread state and simple filtered queries.
package feed

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rkreels/spendguard/internal/storage"
)

// StorageKey is the persisted key-value key holding the feed.
const StorageKey = "notifications"

// Priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Well-known notification types.
const (
	TypeApprovalRequest = "approval_request"
	TypeStatusChange    = "status_change"
	TypePayment         = "payment"
	TypeDelivery        = "delivery"
	TypeSystem          = "system"
)

// Notification is one user-facing feed entry. ExpiresAt is carried for feed
// consumers but never consulted by the feed itself.
type Notification struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
	IsRead     bool              `json:"isRead"`
	Priority   string            `json:"priority"`
	ActionURL  string            `json:"actionUrl,omitempty"`
	EntityType string            `json:"entityType,omitempty"`
	EntityID   string            `json:"entityId,omitempty"`
	UserID     string            `json:"userId,omitempty"`
	Department string            `json:"department,omitempty"`
	ExpiresAt  *time.Time        `json:"expiresAt,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Filter selects feed entries; unset fields impose no constraint.
type Filter struct {
	Type       string
	Priority   string
	IsRead     *bool
	Department string
}

// Stats is the aggregate view over the feed.
type Stats struct {
	Total           int            `json:"total"`
	Unread          int            `json:"unread"`
	UrgentUnread    int            `json:"urgentUnread"`
	ApprovalsUnread int            `json:"approvalsUnread"`
	ByType          map[string]int `json:"byType"`
	ByPriority      map[string]int `json:"byPriority"`
}

// Feed holds notifications most-recent-first: Add prepends.
type Feed struct {
	store  storage.Provider // nil means session-only
	logger *slog.Logger
	now    func() time.Time
	onAdd  func(Notification) // optional broadcast hook

	mu     sync.Mutex
	items  []Notification
	loaded bool
}

// Option configures a Feed.
type Option func(*Feed)

// WithClock injects the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

// WithOnAdd registers a hook fired after every added notification, used to
// push feed entries onto the event stream.
func WithOnAdd(fn func(Notification)) Option {
	return func(f *Feed) { f.onAdd = fn }
}

// SetOnAdd registers the hook after construction, for callers that receive
// an already-built feed.
func (f *Feed) SetOnAdd(fn func(Notification)) {
	f.mu.Lock()
	f.onAdd = fn
	f.mu.Unlock()
}

// New creates a feed. provider may be nil for a session-only feed.
func New(provider storage.Provider, logger *slog.Logger, opts ...Option) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Feed{store: provider, logger: logger, now: time.Now, items: []Notification{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) ensureLoadedLocked() {
	if f.loaded {
		return
	}
	f.loaded = true
	if f.store == nil {
		return
	}
	data, err := f.store.Read(StorageKey)
	if err != nil {
		return
	}
	var items []Notification
	if err := json.Unmarshal(data, &items); err != nil {
		f.logger.Warn("feed: corrupt stored value, starting empty", slog.String("error", err.Error()))
		return
	}
	if items != nil {
		f.items = items
	}
}

func (f *Feed) persistLocked() {
	if f.store == nil {
		return
	}
	data, err := json.Marshal(f.items)
	if err != nil {
		f.logger.Warn("feed: marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := f.store.Write(StorageKey, data); err != nil {
		f.logger.Warn("feed: persist failed", slog.String("error", err.Error()))
	}
}

// Add assigns an id and timestamp, prepends the notification and persists.
// Returns the stored entry.
func (f *Feed) Add(n Notification) Notification {
	f.mu.Lock()
	f.ensureLoadedLocked()

	n.ID = "notif-" + uuid.NewString()
	n.Timestamp = f.now()
	n.IsRead = false
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	f.items = append([]Notification{n}, f.items...)
	f.persistLocked()
	hook := f.onAdd
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return n
}

// MarkRead flips the read flag on one entry. Idempotent; no-op if absent.
func (f *Feed) MarkRead(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()

	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsRead = true
			f.persistLocked()
			return
		}
	}
}

// MarkAllRead flips the read flag on every entry. Idempotent.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()

	for i := range f.items {
		f.items[i].IsRead = true
	}
	f.persistLocked()
}

// Delete removes one entry by id. No-op if absent.
func (f *Feed) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()

	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			f.persistLocked()
			return
		}
	}
}

// Filtered returns entries matching every set field of flt, most recent
// first. The returned slice is freshly allocated.
func (f *Feed) Filtered(flt Filter) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()

	out := make([]Notification, 0, len(f.items))
	for _, n := range f.items {
		if flt.Type != "" && flt.Type != "all" && n.Type != flt.Type {
			continue
		}
		if flt.Priority != "" && flt.Priority != "all" && n.Priority != flt.Priority {
			continue
		}
		if flt.IsRead != nil && n.IsRead != *flt.IsRead {
			continue
		}
		if flt.Department != "" && flt.Department != "all" && n.Department != flt.Department {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Stats scans the feed and returns the aggregate counts.
func (f *Feed) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked()

	st := Stats{
		Total:      len(f.items),
		ByType:     make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, n := range f.items {
		st.ByType[n.Type]++
		st.ByPriority[n.Priority]++
		if n.IsRead {
			continue
		}
		st.Unread++
		if n.Priority == PriorityUrgent {
			st.UrgentUnread++
		}
		if n.Type == TypeApprovalRequest {
			st.ApprovalsUnread++
		}
	}
	return st
}
