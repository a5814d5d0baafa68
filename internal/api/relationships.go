package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rkreels/spendguard/internal/procurement"
)

// RelationshipHandler serves the cross-entity relationship graph.
type RelationshipHandler struct {
	svc *procurement.Service
}

// NewRelationshipHandler creates a handler over the service's graph store.
func NewRelationshipHandler(svc *procurement.Service) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

// Link handles POST /relationships. Both endpoints are soft references;
// nothing checks they exist.
func (h *RelationshipHandler) Link(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req linkRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	edge := h.svc.LinkEntities(req.FromEntity, req.FromID, req.ToEntity, req.ToID, req.RelationshipType, req.Metadata)
	writeJSON(w, http.StatusCreated, edge)
}

// Unlink handles DELETE /relationships/{edgeId}. Removing an absent edge is
// a no-op, so this always answers 204.
func (h *RelationshipHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	h.svc.Unlink(chi.URLParam(r, "edgeId"))
	w.WriteHeader(http.StatusNoContent)
}

// Edges handles GET /relationships/{entity}/{id}: every edge touching the
// entity as either endpoint.
func (h *RelationshipHandler) Edges(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")
	edges := h.svc.Graph.RelationshipsFor(entity, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"edges": edges,
		"total": len(edges),
	})
}

// Related handles GET /related/{entity}/{id}: neighbors with direction and
// an advisory resolution flag (edges may dangle).
func (h *RelationshipHandler) Related(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")
	related := h.svc.Related(entity, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"related": related,
		"total":   len(related),
	})
}

// Traverse handles GET /traverse/{entity}/{id}?depth=N. A non-numeric depth
// coerces to 0; absent defaults to 2.
func (h *RelationshipHandler) Traverse(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")

	depth := 2
	if raw := r.URL.Query().Get("depth"); raw != "" {
		depth, _ = strconv.Atoi(raw)
	}
	writeJSON(w, http.StatusOK, h.svc.TraverseFrom(entity, id, depth))
}
