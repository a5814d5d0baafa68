package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rkreels/spendguard/internal/apperr"
	"github.com/rkreels/spendguard/internal/procurement"
)

// ReportHandler serves the cross-collection rollups: per-contract
// utilization, per-supplier spend and the spend-guard summary.
type ReportHandler struct {
	svc *procurement.Service
}

func NewReportHandler(svc *procurement.Service) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// ContractUtilization handles GET /contracts/{id}/utilization.
func (h *ReportHandler) ContractUtilization(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ContractUtilizationFor(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SupplierSpend handles GET /suppliers/{id}/spend.
func (h *ReportHandler) SupplierSpend(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SupplierSpendFor(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SpendGuard handles GET /spend-guard: the attention-items summary across
// every collection.
func (h *ReportHandler) SpendGuard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SpendGuard())
}
