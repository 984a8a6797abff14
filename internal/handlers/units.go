package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/julienbonastre/scantosold/internal/inventory"
)

type createUnitRequest struct {
	StoreNumber string  `json:"store_number" validate:"required,max=64"`
	Name        string  `json:"name" validate:"max=200"`
	Cost        float64 `json:"cost" validate:"min=0"`
}

type updateUnitRequest struct {
	Name *string  `json:"name" validate:"omitempty,max=200"`
	Cost *float64 `json:"cost" validate:"omitempty,min=0"`
}

// ListUnits returns every storage unit
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.items.ListUnits(r.Context())
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	if units == nil {
		units = []*inventory.StorageUnit{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"units": units,
		"total": len(units),
	})
}

func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	unit, err := h.items.CreateUnit(r.Context(), req.StoreNumber, req.Name, req.Cost)
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, unit)
}

func (h *Handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.items.GetUnit(r.Context(), chi.URLParam(r, "storeNumber"))
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, unit)
}

func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	var req updateUnitRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	unit, err := h.items.UpdateUnit(r.Context(), chi.URLParam(r, "storeNumber"), inventory.UnitUpdate{
		Name: req.Name,
		Cost: req.Cost,
	})
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, unit)
}

// DeleteUnit removes a unit following the configured delete policy
func (h *Handler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	result, err := h.items.DeleteUnit(r.Context(), chi.URLParam(r, "storeNumber"))
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// GetUnitStats returns the break-even rollup of one unit
func (h *Handler) GetUnitStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.items.UnitStats(r.Context(), chi.URLParam(r, "storeNumber"))
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// GetStats returns dashboard totals and every unit's rollup
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.items.Dashboard(r.Context())
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	units, err := h.items.AllUnitStats(r.Context())
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	if units == nil {
		units = []inventory.UnitReport{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"totals": totals,
		"units":  units,
	})
}
