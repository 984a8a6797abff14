package inventory

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julienbonastre/scantosold/internal/calculator"
)

func TestNewItem_ComputesCalculationAndCostCode(t *testing.T) {
	item, err := NewItem(NewItemParams{Title: "Lamp", StorageUnitID: "U-7", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "C5", item.CostCode())
	assert.Equal(t, calculator.Compute(45, 5, 10), item.Calculation())
	assert.True(t, item.Calculation().IsProfitable)
	assert.Regexp(t, regexp.MustCompile(`^STS-U7-C5-[0-9A-F]{6}$`), item.SKU)
}

func TestNewItem_KeepsGivenSKU(t *testing.T) {
	item, err := NewItem(NewItemParams{SKU: "  my-sku ", StorageUnitID: "U-1"})
	require.NoError(t, err)
	assert.Equal(t, "my-sku", item.SKU)
}

func TestNewItem_CarriesEbayIds(t *testing.T) {
	item, err := NewItem(NewItemParams{SKU: "S-1", StorageUnitID: "U-1", EbayOfferID: "o-1", EbayListingID: " l-1 "})
	require.NoError(t, err)
	assert.Equal(t, "o-1", item.EbayOfferID)
	assert.Equal(t, "l-1", item.EbayListingID)
}

func TestNewItem_RequiresUnit(t *testing.T) {
	_, err := NewItem(NewItemParams{SoldPrice: 10})
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestNewItem_RejectsInvalidPrices(t *testing.T) {
	_, err := NewItem(NewItemParams{StorageUnitID: "U-1", SoldPrice: -1})
	assert.True(t, errors.Is(err, calculator.ErrInvalidInput))
}

func TestReprice_CostOnlyEditRecomputesBoth(t *testing.T) {
	item, err := NewItem(NewItemParams{StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})
	require.NoError(t, err)
	sku := item.SKU

	cost := 12.75
	require.NoError(t, item.Reprice(ItemUpdate{ItemCost: &cost}))

	assert.Equal(t, "C12", item.CostCode())
	assert.Equal(t, calculator.Compute(45, 12.75, 10), item.Calculation())
	assert.Equal(t, sku, item.SKU)
}

func TestReprice_RejectedEditLeavesItemUnchanged(t *testing.T) {
	item, err := NewItem(NewItemParams{Title: "Old", StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})
	require.NoError(t, err)
	before := item.Calculation()

	title := "New"
	bad := -3.0
	err = item.Reprice(ItemUpdate{Title: &title, ShippingCost: &bad})

	require.Error(t, err)
	assert.Equal(t, before, item.Calculation())
	assert.Equal(t, "C5", item.CostCode())
	assert.Equal(t, "Old", item.Title)
}

func TestHydrate_RecomputesFromPrices(t *testing.T) {
	original, err := NewItem(NewItemParams{StorageUnitID: "U-1", SoldPrice: 10, ItemCost: 8, ShippingCost: 5})
	require.NoError(t, err)

	restored := Hydrate(original.Record())

	assert.Equal(t, original.Calculation(), restored.Calculation())
	assert.Equal(t, original.CostCode(), restored.CostCode())
	assert.Equal(t, original.SKU, restored.SKU)
}

func TestMoveTo(t *testing.T) {
	item, err := NewItem(NewItemParams{StorageUnitID: "U-1"})
	require.NoError(t, err)

	require.NoError(t, item.MoveTo(" U-2 "))
	assert.Equal(t, "U-2", item.StorageUnitID)
	assert.True(t, errors.Is(item.MoveTo(""), ErrInvalid))
}

func TestItemMarshalJSON(t *testing.T) {
	item, err := NewItem(NewItemParams{SKU: "S1", StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})
	require.NoError(t, err)

	raw, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "S1", decoded["sku"])
	assert.Equal(t, "C5", decoded["cost_code"])
	calc := decoded["calculation"].(map[string]any)
	assert.Equal(t, true, calc["is_profitable"])
	assert.InDelta(t, 23.7375, calc["net_profit"], 1e-9)
	assert.NotContains(t, decoded, "ebay_offer_id")
}

func TestNewUnit(t *testing.T) {
	unit, err := NewUnit(" U-1 ", " Garage ", 145)
	require.NoError(t, err)
	assert.Equal(t, "U-1", unit.StoreNumber)
	assert.Equal(t, "Garage", unit.Name)

	_, err = NewUnit("", "x", 1)
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = NewUnit("U-2", "", -1)
	var invalid *calculator.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "cost", invalid.Field)
}

func TestUnitApply(t *testing.T) {
	unit, err := NewUnit("U-1", "", 100)
	require.NoError(t, err)

	bad := -5.0
	require.Error(t, unit.Apply(UnitUpdate{Cost: &bad}))
	assert.Equal(t, 100.0, unit.Cost)

	cost := 250.0
	name := "Big"
	require.NoError(t, unit.Apply(UnitUpdate{Cost: &cost, Name: &name}))
	assert.Equal(t, 250.0, unit.Cost)
	assert.Equal(t, "Big", unit.Name)
}
