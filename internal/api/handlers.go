package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/store"
)

const maxBodyBytes = 1 << 20

// entityResource wires one entity collection into the router: list with
// search/filter/sort, CRUD, per-collection metrics and the named transition
// actions. The decode/create/update/remove/actions hooks carry the
// entity-specific behavior so the HTTP plumbing is written once.
type entityResource[T store.Record] struct {
	name    string
	col     *store.Collection[T]
	filters []string
	decode  func(*http.Request) (T, error)
	create  func(T) T
	update  func(id string, patch map[string]any) (T, error)
	remove  func(id string) error
	actions map[string]func(r *http.Request, id string) (any, error)
}

func (res *entityResource[T]) routes(r chi.Router) {
	r.Get("/", res.list)
	r.Post("/", res.createHandler)
	r.Get("/metrics", res.metrics)
	r.Get("/{id}", res.get)
	r.Put("/{id}", res.patch)
	r.Patch("/{id}", res.patch)
	r.Delete("/{id}", res.del)
	r.Post("/{id}/{action}", res.action)
}

// list handles GET /. Query params: search (substring, case-insensitive),
// sort + dir, and the entity's exact-match filters, where "all" means no
// constraint.
func (res *entityResource[T]) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := store.Query{
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
		Filters: map[string]string{},
	}
	query.Filters["status"] = q.Get("status")
	for _, f := range res.filters {
		query.Filters[f] = q.Get(f)
	}

	items := res.col.List(query)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

func (res *entityResource[T]) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := res.col.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (res *entityResource[T]) createHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	rec, err := res.decode(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	out := res.create(rec)
	writeJSON(w, http.StatusCreated, out)
}

// patch handles PUT and PATCH identically: a JSON-level shallow merge where
// nested objects in the body replace the stored value wholesale.
func (res *entityResource[T]) patch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")

	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rec, err := res.update(id, patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("update failed", slog.String("entity", res.name), slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (res *entityResource[T]) del(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := res.remove(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (res *entityResource[T]) metrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, res.col.Metrics())
}

// action handles POST /{id}/{action}: the named status transitions. An
// unknown action is 404, an unknown id 404, an illegal move 409.
func (res *entityResource[T]) action(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "action")

	fn, ok := res.actions[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown action"))
		return
	}
	out, err := fn(r, id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrIllegalTransition):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		default:
			slog.Error("action failed", slog.String("entity", res.name), slog.String("action", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}
