package inventory

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julienbonastre/scantosold/internal/apperr"
	"github.com/julienbonastre/scantosold/internal/calculator"
)

type memStore struct {
	items map[string]ItemRecord
	units map[string]StorageUnit
}

func newMemStore() *memStore {
	return &memStore{items: map[string]ItemRecord{}, units: map[string]StorageUnit{}}
}

func (m *memStore) CreateItem(_ context.Context, item *InventoryItem) error {
	for _, rec := range m.items {
		if strings.EqualFold(rec.SKU, item.SKU) {
			return ErrConflict
		}
	}
	m.items[item.ID] = item.Record()
	return nil
}

func (m *memStore) GetItem(_ context.Context, id string) (*InventoryItem, error) {
	rec, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return Hydrate(rec), nil
}

func (m *memStore) GetItemBySKU(_ context.Context, sku string) (*InventoryItem, error) {
	for _, rec := range m.items {
		if strings.EqualFold(rec.SKU, sku) {
			return Hydrate(rec), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) UpdateItem(_ context.Context, item *InventoryItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return ErrNotFound
	}
	m.items[item.ID] = item.Record()
	return nil
}

func (m *memStore) DeleteItem(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) ListItems(_ context.Context) ([]*InventoryItem, error) {
	var out []*InventoryItem
	for _, rec := range m.items {
		out = append(out, Hydrate(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (m *memStore) ListItemsByUnit(ctx context.Context, storeNumber string) ([]*InventoryItem, error) {
	all, _ := m.ListItems(ctx)
	var out []*InventoryItem
	for _, item := range all {
		if item.StorageUnitID == storeNumber {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) CreateUnit(_ context.Context, unit *StorageUnit) error {
	if _, ok := m.units[unit.StoreNumber]; ok {
		return ErrConflict
	}
	m.units[unit.StoreNumber] = *unit
	return nil
}

func (m *memStore) GetUnit(_ context.Context, storeNumber string) (*StorageUnit, error) {
	unit, ok := m.units[storeNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return &unit, nil
}

func (m *memStore) UpdateUnit(_ context.Context, unit *StorageUnit) error {
	m.units[unit.StoreNumber] = *unit
	return nil
}

func (m *memStore) DeleteUnit(_ context.Context, storeNumber, reassignTo string, requireEmpty bool) (int, error) {
	if _, ok := m.units[storeNumber]; !ok {
		return 0, ErrNotFound
	}
	count := 0
	for _, rec := range m.items {
		if rec.StorageUnitID == storeNumber {
			count++
		}
	}
	if requireEmpty && count > 0 {
		return count, ErrNotEmpty
	}
	if reassignTo != "" {
		for id, rec := range m.items {
			if rec.StorageUnitID == storeNumber {
				rec.StorageUnitID = reassignTo
				m.items[id] = rec
			}
		}
	}
	delete(m.units, storeNumber)
	return count, nil
}

func (m *memStore) ListUnits(_ context.Context) ([]*StorageUnit, error) {
	var out []*StorageUnit
	for _, unit := range m.units {
		u := unit
		out = append(out, &u)
	}
	return out, nil
}

func newTestService(t *testing.T, opts Options) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := NewService(store, opts)
	require.NoError(t, err)
	return svc, store
}

func TestService_CreateItemRequiresKnownUnit(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-404", SoldPrice: 10})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.CreateItem(ctx, CreateItemInput{SoldPrice: 10})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestService_CreateItemRejectsNegativeInput(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, err := svc.CreateUnit(ctx, "U-1", "Main", 100)
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 10, ShippingCost: -2})
	require.Error(t, err)
	typed := apperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperr.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"shipping_cost": "must be a non-negative number"}, typed.Details())
}

func TestService_DuplicateSKUConflicts(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, err := svc.CreateUnit(ctx, "U-1", "", 0)
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, CreateItemInput{SKU: "ABC", StorageUnitID: "U-1"})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, CreateItemInput{SKU: "abc", StorageUnitID: "U-1"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestService_DuplicateStoreNumberConflicts(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.CreateUnit(ctx, "U-1", "", 10)
	require.NoError(t, err)
	_, err = svc.CreateUnit(ctx, "U-1", "", 20)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	_, err = svc.CreateUnit(ctx, "U-2", "", -5)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestService_UpdateItemRecomputesTogether(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()
	_, err := svc.CreateUnit(ctx, "U-1", "", 0)
	require.NoError(t, err)
	item, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})
	require.NoError(t, err)

	cost := 30.0
	updated, err := svc.UpdateItem(ctx, item.ID, ItemUpdate{ItemCost: &cost})
	require.NoError(t, err)

	assert.Equal(t, "C30", updated.CostCode())
	assert.Equal(t, calculator.Compute(45, 30, 10), updated.Calculation())

	stored := store.items[item.ID]
	assert.Equal(t, 30.0, stored.ItemCost)
	assert.Equal(t, 45.0, stored.SoldPrice)
}

func TestService_UpdateMissingItem(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.UpdateItem(context.Background(), "nope", ItemUpdate{})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestService_MoveItem(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)
	_, _ = svc.CreateUnit(ctx, "U-2", "", 0)
	item, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 20})
	require.NoError(t, err)

	moved, err := svc.MoveItem(ctx, item.ID, "U-2")
	require.NoError(t, err)
	assert.Equal(t, "U-2", moved.StorageUnitID)

	_, err = svc.MoveItem(ctx, item.ID, "U-9")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestService_UnitStatsBreakEven(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, err := svc.CreateUnit(ctx, "U-1", "Garage", 145)
	require.NoError(t, err)
	first, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 80, ItemCost: 10, ShippingCost: 8})
	require.NoError(t, err)
	second, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 90, ItemCost: 12, ShippingCost: 9})
	require.NoError(t, err)

	report, err := svc.UnitStats(ctx, "U-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.ItemCount)
	assert.Equal(t, 170.0, report.Stats.TotalSoldValue)
	assert.Equal(t, 100.0, report.Stats.ProgressPercent)
	assert.True(t, report.Stats.IsBreakEven)
	assert.InDelta(t, first.Calculation().NetProfit+second.Calculation().NetProfit, report.Stats.TotalProfit, 1e-9)
}

func TestService_AllUnitStats(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "B", "", 100)
	_, _ = svc.CreateUnit(ctx, "A", "", 0)
	_, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "B", SoldPrice: 50})
	require.NoError(t, err)

	reports, err := svc.AllUnitStats(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "A", reports[0].Unit.StoreNumber)
	assert.True(t, reports[0].Stats.IsBreakEven)
	assert.Equal(t, 0, reports[0].ItemCount)
	assert.Equal(t, 50.0, reports[1].Stats.ProgressPercent)
}

func TestService_DeleteUnitBlock(t *testing.T) {
	svc, store := newTestService(t, Options{DeletePolicy: PolicyBlock})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)
	_, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1"})
	require.NoError(t, err)

	_, err = svc.DeleteUnit(ctx, "U-1")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	assert.ErrorIs(t, err, ErrNotEmpty)
	assert.Equal(t, map[string]any{"store_number": "U-1", "items": 1}, apperr.As(err).Details())
	assert.Contains(t, store.units, "U-1")
}

// the emptiness check belongs to the store's delete, not a separate read
func TestService_DeleteUnitBlockAsksStoreForEmptiness(t *testing.T) {
	store := &emptinessStore{memStore: newMemStore()}
	svc, err := NewService(store, Options{DeletePolicy: PolicyBlock})
	require.NoError(t, err)
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)

	_, err = svc.DeleteUnit(ctx, "U-1")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, store.requireEmpty)
	assert.Zero(t, store.listedByUnit)
}

type emptinessStore struct {
	*memStore
	requireEmpty []bool
	listedByUnit int
}

func (e *emptinessStore) ListItemsByUnit(ctx context.Context, storeNumber string) ([]*InventoryItem, error) {
	e.listedByUnit++
	return e.memStore.ListItemsByUnit(ctx, storeNumber)
}

func (e *emptinessStore) DeleteUnit(ctx context.Context, storeNumber, reassignTo string, requireEmpty bool) (int, error) {
	e.requireEmpty = append(e.requireEmpty, requireEmpty)
	return e.memStore.DeleteUnit(ctx, storeNumber, reassignTo, requireEmpty)
}

func TestService_DeleteEmptyUnitBlock(t *testing.T) {
	svc, store := newTestService(t, Options{DeletePolicy: PolicyBlock})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)

	result, err := svc.DeleteUnit(ctx, "U-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsAffected)
	assert.NotContains(t, store.units, "U-1")
}

func TestService_DeleteUnitOrphan(t *testing.T) {
	svc, store := newTestService(t, Options{DeletePolicy: PolicyOrphan})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)
	item, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1"})
	require.NoError(t, err)

	result, err := svc.DeleteUnit(ctx, "U-1")
	require.NoError(t, err)

	assert.Equal(t, PolicyOrphan, result.Policy)
	assert.Equal(t, 1, result.ItemsAffected)
	assert.Equal(t, "U-1", store.items[item.ID].StorageUnitID)
}

func TestService_DeleteUnitReassign(t *testing.T) {
	svc, store := newTestService(t, Options{DeletePolicy: PolicyReassign, DefaultUnit: "HOME"})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "HOME", "", 0)
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)
	item, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1"})
	require.NoError(t, err)

	result, err := svc.DeleteUnit(ctx, "U-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsAffected)
	assert.Equal(t, "HOME", result.ReassignedTo)
	assert.Equal(t, "HOME", store.items[item.ID].StorageUnitID)

	_, err = svc.DeleteUnit(ctx, "HOME")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestService_DeleteUnitReassignMatchesDefaultExactly(t *testing.T) {
	svc, store := newTestService(t, Options{DeletePolicy: PolicyReassign, DefaultUnit: "HOME"})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "HOME", "", 0)
	_, _ = svc.CreateUnit(ctx, "home", "", 0)
	item, err := svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "home"})
	require.NoError(t, err)

	result, err := svc.DeleteUnit(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "HOME", result.ReassignedTo)
	assert.Equal(t, "HOME", store.items[item.ID].StorageUnitID)
	assert.Contains(t, store.units, "HOME")
}

func TestService_DeleteUnitReassignMissingDefault(t *testing.T) {
	svc, _ := newTestService(t, Options{DeletePolicy: PolicyReassign, DefaultUnit: "HOME"})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)

	_, err := svc.DeleteUnit(ctx, "U-1")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestService_Dashboard(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	_, _ = svc.CreateUnit(ctx, "U-1", "", 0)
	_, _ = svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})
	_, _ = svc.CreateItem(ctx, CreateItemInput{StorageUnitID: "U-1", SoldPrice: 10, ItemCost: 8, ShippingCost: 5})

	totals, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.ItemCount)
	assert.Equal(t, 1, totals.ProfitableCount)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, Options{})
	assert.Error(t, err)

	_, err = NewService(newMemStore(), Options{DeletePolicy: PolicyReassign})
	assert.Error(t, err)
}

func TestParseDeletePolicy(t *testing.T) {
	p, err := ParseDeletePolicy(" Orphan ")
	require.NoError(t, err)
	assert.Equal(t, PolicyOrphan, p)

	p, err = ParseDeletePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBlock, p)

	_, err = ParseDeletePolicy("cascade")
	assert.Error(t, err)
}
