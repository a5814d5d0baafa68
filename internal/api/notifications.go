package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rkreels/spendguard/internal/feed"
)

// NotificationHandler serves the notification feed.
type NotificationHandler struct {
	feed *feed.Feed
}

// NewNotificationHandler creates a handler over the feed.
func NewNotificationHandler(f *feed.Feed) *NotificationHandler {
	return &NotificationHandler{feed: f}
}

// List handles GET /notifications with optional type, priority, isRead and
// department filters; unset params impose no constraint.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	flt := feed.Filter{
		Type:       q.Get("type"),
		Priority:   q.Get("priority"),
		Department: q.Get("department"),
	}
	if raw := q.Get("isRead"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			flt.IsRead = &v
		}
	}
	items := h.feed.Filtered(flt)
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         len(items),
	})
}

// Stats handles GET /notifications/stats.
func (h *NotificationHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.Stats())
}

// Create handles POST /notifications.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n := h.feed.Add(feed.Notification{
		Type:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		Priority:   req.Priority,
		ActionURL:  req.ActionURL,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Department: req.Department,
		Metadata:   req.Metadata,
	})
	writeJSON(w, http.StatusCreated, n)
}

// MarkRead handles POST /notifications/{id}/read. Idempotent.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.feed.MarkRead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, _ *http.Request) {
	h.feed.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.feed.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
