package inventory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julienbonastre/scantosold/internal/calculator"
)

// InventoryItem is a tracked item and its profit breakdown.
//
// The calculation and cost code are derived from the item's prices and are
// only ever recomputed together; there is no way to set either one directly.
type InventoryItem struct {
	ID            string
	SKU           string
	Title         string
	StorageUnitID string // store number of the owning unit
	EbayOfferID   string
	EbayListingID string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	calculation calculator.ProfitCalculation
	costCode    string
}

// NewItemParams holds the inputs captured when an item is valued
type NewItemParams struct {
	SKU           string
	Title         string
	StorageUnitID string
	SoldPrice     float64
	ItemCost      float64
	ShippingCost  float64
	// set when the item already exists on eBay
	EbayOfferID   string
	EbayListingID string
}

// ItemUpdate carries edited fields; nil means unchanged
type ItemUpdate struct {
	Title        *string
	SoldPrice    *float64
	ItemCost     *float64
	ShippingCost *float64
}

// ItemRecord is the flat persisted form of an item
type ItemRecord struct {
	ID            string
	SKU           string
	Title         string
	StorageUnitID string
	SoldPrice     float64
	ShippingCost  float64
	ItemCost      float64
	EbayOfferID   string
	EbayListingID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewItem creates an item with a fresh id and computed calculation
func NewItem(params NewItemParams) (*InventoryItem, error) {
	unit := strings.TrimSpace(params.StorageUnitID)
	if unit == "" {
		return nil, fmt.Errorf("%w: storage unit is required", ErrInvalid)
	}

	calc, err := calculator.ComputeStrict(params.SoldPrice, params.ItemCost, params.ShippingCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &InventoryItem{
		ID:            uuid.NewString(),
		SKU:           strings.TrimSpace(params.SKU),
		Title:         strings.TrimSpace(params.Title),
		StorageUnitID: unit,
		EbayOfferID:   strings.TrimSpace(params.EbayOfferID),
		EbayListingID: strings.TrimSpace(params.EbayListingID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	item.apply(calc)

	if item.SKU == "" {
		item.SKU = GenerateSKU(unit, item.costCode)
	}
	return item, nil
}

// Hydrate rebuilds an item from its persisted form. Derived fields are
// recomputed from the stored prices rather than trusted.
func Hydrate(rec ItemRecord) *InventoryItem {
	item := &InventoryItem{
		ID:            rec.ID,
		SKU:           rec.SKU,
		Title:         rec.Title,
		StorageUnitID: rec.StorageUnitID,
		EbayOfferID:   rec.EbayOfferID,
		EbayListingID: rec.EbayListingID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	item.apply(calculator.Compute(rec.SoldPrice, rec.ItemCost, rec.ShippingCost))
	return item
}

// Record returns the flat persisted form
func (i *InventoryItem) Record() ItemRecord {
	return ItemRecord{
		ID:            i.ID,
		SKU:           i.SKU,
		Title:         i.Title,
		StorageUnitID: i.StorageUnitID,
		SoldPrice:     i.calculation.SoldPrice,
		ShippingCost:  i.calculation.ShippingCost,
		ItemCost:      i.calculation.ItemCost,
		EbayOfferID:   i.EbayOfferID,
		EbayListingID: i.EbayListingID,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

// Calculation returns the item's profit breakdown
func (i *InventoryItem) Calculation() calculator.ProfitCalculation {
	return i.calculation
}

// CostCode returns the label derived from the current item cost
func (i *InventoryItem) CostCode() string {
	return i.costCode
}

// Reprice merges the edited values with the current ones and recomputes the
// calculation and cost code in one step. On error the item is left unchanged.
func (i *InventoryItem) Reprice(update ItemUpdate) error {
	sold := i.calculation.SoldPrice
	cost := i.calculation.ItemCost
	shipping := i.calculation.ShippingCost
	if update.SoldPrice != nil {
		sold = *update.SoldPrice
	}
	if update.ItemCost != nil {
		cost = *update.ItemCost
	}
	if update.ShippingCost != nil {
		shipping = *update.ShippingCost
	}

	calc, err := calculator.ComputeStrict(sold, cost, shipping)
	if err != nil {
		return err
	}

	if update.Title != nil {
		i.Title = strings.TrimSpace(*update.Title)
	}
	i.apply(calc)
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MoveTo reassigns the item to another storage unit
func (i *InventoryItem) MoveTo(storeNumber string) error {
	storeNumber = strings.TrimSpace(storeNumber)
	if storeNumber == "" {
		return fmt.Errorf("%w: storage unit is required", ErrInvalid)
	}
	i.StorageUnitID = storeNumber
	i.UpdatedAt = time.Now().UTC()
	return nil
}

func (i *InventoryItem) apply(calc calculator.ProfitCalculation) {
	i.calculation = calc
	i.costCode = calculator.CostCode(calc.ItemCost)
}

type itemJSON struct {
	ID            string                       `json:"id"`
	SKU           string                       `json:"sku"`
	Title         string                       `json:"title"`
	StorageUnitID string                       `json:"storage_unit_id"`
	CostCode      string                       `json:"cost_code"`
	Calculation   calculator.ProfitCalculation `json:"calculation"`
	EbayOfferID   string                       `json:"ebay_offer_id,omitempty"`
	EbayListingID string                       `json:"ebay_listing_id,omitempty"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

func (i *InventoryItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:            i.ID,
		SKU:           i.SKU,
		Title:         i.Title,
		StorageUnitID: i.StorageUnitID,
		CostCode:      i.costCode,
		Calculation:   i.calculation,
		EbayOfferID:   i.EbayOfferID,
		EbayListingID: i.EbayListingID,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	})
}

var skuUnsafe = regexp.MustCompile(`[^A-Z0-9]+`)

// GenerateSKU builds STS-<unit>-<costCode>-<suffix>. The suffix keeps SKUs
// unique when several items share a unit and cost.
func GenerateSKU(storeNumber, costCode string) string {
	unit := skuUnsafe.ReplaceAllString(strings.ToUpper(storeNumber), "")
	if unit == "" {
		unit = "NA"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("STS-%s-%s-%s", unit, costCode, suffix)
}
