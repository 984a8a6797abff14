package database

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/julienbonastre/scantosold/internal/calculator"
	"github.com/julienbonastre/scantosold/internal/inventory"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUnit(t *testing.T, db *DB, storeNumber string, cost float64) *inventory.StorageUnit {
	t.Helper()
	unit, err := inventory.NewUnit(storeNumber, "", cost)
	require.NoError(t, err)
	require.NoError(t, db.CreateUnit(context.Background(), unit))
	return unit
}

func mustItem(t *testing.T, db *DB, params inventory.NewItemParams) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewItem(params)
	require.NoError(t, err)
	require.NoError(t, db.CreateItem(context.Background(), item))
	return item
}

func TestOpen_MigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.QueryRow(`SELECT COUNT(*) FROM inventory_items`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestItemRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustUnit(t, db, "U-1", 145)
	item := mustItem(t, db, inventory.NewItemParams{Title: "Lamp", StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.SKU, got.SKU)
	assert.Equal(t, "Lamp", got.Title)
	assert.Equal(t, "C5", got.CostCode())
	assert.Equal(t, calculator.Compute(45, 5, 10), got.Calculation())

	bySKU, err := db.GetItemBySKU(ctx, item.SKU)
	require.NoError(t, err)
	assert.Equal(t, item.ID, bySKU.ID)
}

func TestUpdateItemStoresDerivedColumnsTogether(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustUnit(t, db, "U-1", 0)
	item := mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1", SoldPrice: 45, ItemCost: 5, ShippingCost: 10})

	cost := 30.0
	require.NoError(t, item.Reprice(inventory.ItemUpdate{ItemCost: &cost}))
	require.NoError(t, db.UpdateItem(ctx, item))

	var (
		itemCost, net float64
		profitable    bool
		costCode      string
	)
	err := db.QueryRow(`SELECT item_cost, net_profit, is_profitable, cost_code FROM inventory_items WHERE id = ?`, item.ID).
		Scan(&itemCost, &net, &profitable, &costCode)
	require.NoError(t, err)

	want := calculator.Compute(45, 30, 10)
	assert.Equal(t, 30.0, itemCost)
	assert.InDelta(t, want.NetProfit, net, 1e-9)
	assert.Equal(t, want.IsProfitable, profitable)
	assert.Equal(t, "C30", costCode)
}

func TestDuplicateSKUIsConflict(t *testing.T) {
	db := openTestDB(t)
	mustUnit(t, db, "U-1", 0)
	mustItem(t, db, inventory.NewItemParams{SKU: "SKU-1", StorageUnitID: "U-1"})

	dup, err := inventory.NewItem(inventory.NewItemParams{SKU: "sku-1", StorageUnitID: "U-1"})
	require.NoError(t, err)
	assert.ErrorIs(t, db.CreateItem(context.Background(), dup), inventory.ErrConflict)
}

func TestDuplicateStoreNumberIsConflict(t *testing.T) {
	db := openTestDB(t)
	mustUnit(t, db, "U-1", 0)

	unit, err := inventory.NewUnit("U-1", "", 10)
	require.NoError(t, err)
	assert.ErrorIs(t, db.CreateUnit(context.Background(), unit), inventory.ErrConflict)
}

func TestMissingRowsAreNotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	_, err = db.GetUnit(ctx, "missing")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.ErrorIs(t, db.DeleteItem(ctx, "missing"), inventory.ErrNotFound)
	_, err = db.DeleteUnit(ctx, "missing", "", false)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestListItemsByUnit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustUnit(t, db, "U-1", 0)
	mustUnit(t, db, "U-2", 0)
	mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1"})
	mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1"})
	mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-2"})

	items, err := db.ListItemsByUnit(ctx, "U-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	all, err := db.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := db.ListItemsByUnit(ctx, "U-9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteUnitReassignsInTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustUnit(t, db, "HOME", 0)
	mustUnit(t, db, "U-1", 0)
	item := mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1"})

	moved, err := db.DeleteUnit(ctx, "U-1", "HOME", false)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "HOME", got.StorageUnitID)

	_, err = db.GetUnit(ctx, "U-1")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestDeleteUnitOrphansItems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustUnit(t, db, "U-1", 0)
	item := mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1"})

	orphaned, err := db.DeleteUnit(ctx, "U-1", "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, orphaned)

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "U-1", got.StorageUnitID)
}

func TestDeleteUnitRequireEmptyKeepsUnit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	mustUnit(t, db, "U-1", 0)
	mustUnit(t, db, "U-2", 0)
	mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1"})
	mustItem(t, db, inventory.NewItemParams{StorageUnitID: "U-1"})

	count, err := db.DeleteUnit(ctx, "U-1", "", true)
	assert.ErrorIs(t, err, inventory.ErrNotEmpty)
	assert.Equal(t, 2, count)

	_, err = db.GetUnit(ctx, "U-1")
	require.NoError(t, err)

	count, err = db.DeleteUnit(ctx, "U-2", "", true)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = db.GetUnit(ctx, "U-2")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestUpdateUnit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	unit := mustUnit(t, db, "U-1", 100)

	cost := 250.0
	require.NoError(t, unit.Apply(inventory.UnitUpdate{Cost: &cost}))
	require.NoError(t, db.UpdateUnit(ctx, unit))

	got, err := db.GetUnit(ctx, "U-1")
	require.NoError(t, err)
	assert.Equal(t, 250.0, got.Cost)
}

func TestServiceOverSQLite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	svc, err := inventory.NewService(db, inventory.Options{})
	require.NoError(t, err)

	_, err = svc.CreateUnit(ctx, "U-1", "Garage", 145)
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, inventory.CreateItemInput{StorageUnitID: "U-1", SoldPrice: 80, ItemCost: 10, ShippingCost: 8})
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, inventory.CreateItemInput{StorageUnitID: "U-1", SoldPrice: 90, ItemCost: 12, ShippingCost: 9})
	require.NoError(t, err)

	report, err := svc.UnitStats(ctx, "U-1")
	require.NoError(t, err)
	assert.Equal(t, 170.0, report.Stats.TotalSoldValue)
	assert.True(t, report.Stats.IsBreakEven)
}

func TestSyncHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	sh := &SyncHistory{SyncType: "reconcile", Status: "running", StartedAt: time.Now()}
	require.NoError(t, db.CreateSyncHistory(ctx, sh))
	require.NotZero(t, sh.ID)

	done := time.Now()
	sh.Status = "success"
	sh.ItemsSynced = 4
	sh.CompletedAt = &done
	require.NoError(t, db.UpdateSyncHistory(ctx, sh))

	history, err := db.GetSyncHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "success", history[0].Status)
	assert.Equal(t, 4, history[0].ItemsSynced)
	assert.NotNil(t, history[0].CompletedAt)
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	missing, err := db.GetSetting(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.PutSetting(ctx, "k", "v1", ""))
	require.NoError(t, db.PutSetting(ctx, "k", "v2", "desc"))

	got, err := db.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Value)
	assert.Equal(t, "desc", got.Description)
}

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	key := testKey(t)

	sealed, err := EncryptSecret([]byte("secret"), key)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "secret")

	plain, err := DecryptSecret(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))

	_, err = DecryptSecret(sealed, testKey(t))
	assert.Error(t, err)
}

func TestParseEncryptionKey(t *testing.T) {
	key := testKey(t)
	parsed, err := ParseEncryptionKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseEncryptionKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
	_, err = ParseEncryptionKey("")
	assert.Error(t, err)
}

func TestTokenVault(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	vault, err := NewTokenVault(db, testKey(t))
	require.NoError(t, err)

	none, err := vault.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, vault.SaveToken(ctx, &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}))

	setting, err := db.GetSetting(ctx, ebayTokenSetting)
	require.NoError(t, err)
	assert.NotContains(t, setting.Value, "access")

	token, err := vault.LoadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))

	require.NoError(t, vault.ClearToken(ctx))
	none, err = vault.LoadToken(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewSessionStore(db, []byte("0123456789abcdef0123456789abcdef"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/url", nil)
	rec := httptest.NewRecorder()
	session, err := store.Get(req, "sts")
	require.NoError(t, err)
	assert.True(t, session.IsNew)
	session.Values["oauth_state"] = "abc"
	require.NoError(t, session.Save(req, rec))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/api/oauth/callback", nil)
	next.AddCookie(cookies[0])
	loaded, err := store.Get(next, "sts")
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, "abc", loaded.Values["oauth_state"])

	removed, err := store.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
