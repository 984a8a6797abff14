package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/julienbonastre/scantosold/internal/apperr"
	"github.com/julienbonastre/scantosold/internal/ebay"
	"github.com/julienbonastre/scantosold/internal/export"
	"github.com/julienbonastre/scantosold/internal/inventory"
)

type createItemRequest struct {
	SKU           string  `json:"sku" validate:"max=64"`
	Title         string  `json:"title" validate:"max=200"`
	StorageUnitID string  `json:"storage_unit_id" validate:"required"`
	SoldPrice     float64 `json:"sold_price" validate:"min=0"`
	ItemCost      float64 `json:"item_cost" validate:"min=0"`
	ShippingCost  float64 `json:"shipping_cost" validate:"min=0"`
}

type updateItemRequest struct {
	Title        *string  `json:"title" validate:"omitempty,max=200"`
	SoldPrice    *float64 `json:"sold_price" validate:"omitempty,min=0"`
	ItemCost     *float64 `json:"item_cost" validate:"omitempty,min=0"`
	ShippingCost *float64 `json:"shipping_cost" validate:"omitempty,min=0"`
}

type moveItemRequest struct {
	StorageUnitID string `json:"storage_unit_id" validate:"required"`
}

// ListItems returns tracked items, optionally only those of ?unit=
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListItems(r.Context(), r.URL.Query().Get("unit"))
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	if items == nil {
		items = []*inventory.InventoryItem{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

// CreateItem values and stores a new item
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}

	item, err := h.items.CreateItem(r.Context(), inventory.CreateItemInput{
		SKU:           req.SKU,
		Title:         req.Title,
		StorageUnitID: req.StorageUnitID,
		SoldPrice:     req.SoldPrice,
		ItemCost:      req.ItemCost,
		ShippingCost:  req.ShippingCost,
	})
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// GetItem returns one item
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UpdateItem edits an item and recomputes its valuation
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}

	item, err := h.items.UpdateItem(r.Context(), chi.URLParam(r, "id"), inventory.ItemUpdate{
		Title:        req.Title,
		SoldPrice:    req.SoldPrice,
		ItemCost:     req.ItemCost,
		ShippingCost: req.ShippingCost,
	})
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// MoveItem reassigns an item to another unit
func (h *Handler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}

	item, err := h.items.MoveItem(r.Context(), chi.URLParam(r, "id"), req.StorageUnitID)
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// DeleteItem removes an item
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.items.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishItem lists an item on eBay at its sold price
func (h *Handler) PublishItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.requireEbay(); err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}

	id := chi.URLParam(r, "id")
	item, err := h.items.GetItem(ctx, id)
	if err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}
	if item.EbayListingID != "" {
		errorResponse(ctx, h.log, w, apperr.New(apperr.CodeConflict, "item is already listed on eBay").
			WithDetails(map[string]string{"ebay_listing_id": item.EbayListingID}))
		return
	}

	result, err := h.ebayClient.Publish(ctx, ebay.PublishRequest{
		SKU:      item.SKU,
		Title:    item.Title,
		Price:    item.Calculation().SoldPrice,
		Quantity: 1,
		OfferID:  item.EbayOfferID,
	})
	if err != nil {
		// keep the offer so a retry publishes it instead of creating another
		if result != nil && result.OfferID != "" && result.OfferID != item.EbayOfferID {
			if _, markErr := h.items.MarkPublished(ctx, id, result.OfferID, ""); markErr != nil {
				h.log.Error(ctx, "failed to record partial publish", markErr)
			}
		}
		errorResponse(ctx, h.log, w, dependencyError(err, "eBay publish failed"))
		return
	}

	item, err = h.items.MarkPublished(ctx, id, result.OfferID, result.ListingID)
	if err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}
	h.log.Info(h.log.WithFields(ctx, map[string]any{"item_id": id, "listing_id": result.ListingID}), "item published")
	jsonResponse(w, http.StatusOK, item)
}

// ExportCSV streams the ledger, optionally only one unit's items
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	unit := strings.TrimSpace(r.URL.Query().Get("unit"))
	filename := "inventory.csv"
	if unit != "" {
		if _, err := h.items.GetUnit(ctx, unit); err != nil {
			errorResponse(ctx, h.log, w, err)
			return
		}
		filename = fmt.Sprintf("inventory-%s.csv", sanitizeFilename(unit))
	}

	items, err := h.items.ListItems(ctx, unit)
	if err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, items); err != nil {
		h.log.Error(ctx, "csv export failed", err)
	}
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func (h *Handler) requireEbay() error {
	if h.ebayClient == nil || !h.ebayClient.IsConfigured() {
		return apperr.New(apperr.CodeDependency, "eBay credentials are not configured")
	}
	if !h.ebayClient.IsAuthenticated() {
		return apperr.New(apperr.CodeUnauthorized, "connect an eBay account first")
	}
	return nil
}
