package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julienbonastre/scantosold/internal/inventory"
)

var _ inventory.Store = (*DB)(nil)

const itemColumns = `id, sku, title, storage_unit_id, sold_price, shipping_cost, item_cost,
	ebay_offer_id, ebay_listing_id, created_at, updated_at`

const unitColumns = `id, store_number, name, cost, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateItem inserts an item together with its calculation and cost code
func (db *DB) CreateItem(ctx context.Context, item *inventory.InventoryItem) error {
	rec := item.Record()
	calc := item.Calculation()
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory_items (id, sku, title, storage_unit_id, sold_price, shipping_cost, item_cost,
			platform_fees, net_profit, is_profitable, cost_code, ebay_offer_id, ebay_listing_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.SKU, rec.Title, rec.StorageUnitID, calc.SoldPrice, calc.ShippingCost, calc.ItemCost,
		calc.PlatformFees, calc.NetProfit, calc.IsProfitable, item.CostCode(),
		rec.EbayOfferID, rec.EbayListingID, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("sku %s: %w", rec.SKU, inventory.ErrConflict)
	}
	return err
}

// GetItem retrieves an item by id
func (db *DB) GetItem(ctx context.Context, id string) (*inventory.InventoryItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)
	return scanItem(row)
}

// GetItemBySKU retrieves an item by SKU, ignoring case
func (db *DB) GetItemBySKU(ctx context.Context, sku string) (*inventory.InventoryItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE sku = ? COLLATE NOCASE`, sku)
	return scanItem(row)
}

// UpdateItem rewrites the whole row, so the stored calculation and cost code
// always change in the same statement
func (db *DB) UpdateItem(ctx context.Context, item *inventory.InventoryItem) error {
	rec := item.Record()
	calc := item.Calculation()
	result, err := db.ExecContext(ctx, `
		UPDATE inventory_items
		SET title = ?, storage_unit_id = ?, sold_price = ?, shipping_cost = ?, item_cost = ?,
			platform_fees = ?, net_profit = ?, is_profitable = ?, cost_code = ?,
			ebay_offer_id = ?, ebay_listing_id = ?, updated_at = ?
		WHERE id = ?
	`, rec.Title, rec.StorageUnitID, calc.SoldPrice, calc.ShippingCost, calc.ItemCost,
		calc.PlatformFees, calc.NetProfit, calc.IsProfitable, item.CostCode(),
		rec.EbayOfferID, rec.EbayListingID, rec.UpdatedAt.UTC(), rec.ID)
	if err != nil {
		return err
	}
	return expectAffected(result, "item "+rec.ID)
}

// DeleteItem removes an item
func (db *DB) DeleteItem(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM inventory_items WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(result, "item "+id)
}

// ListItems returns every item ordered by creation time
func (db *DB) ListItems(ctx context.Context) ([]*inventory.InventoryItem, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// ListItemsByUnit returns the items referencing a store number
func (db *DB) ListItemsByUnit(ctx context.Context, storeNumber string) ([]*inventory.InventoryItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE storage_unit_id = ?
		ORDER BY created_at, id
	`, storeNumber)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// CreateUnit inserts a storage unit
func (db *DB) CreateUnit(ctx context.Context, unit *inventory.StorageUnit) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO storage_units (id, store_number, name, cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, unit.ID, unit.StoreNumber, unit.Name, unit.Cost, unit.CreatedAt.UTC(), unit.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("store number %s: %w", unit.StoreNumber, inventory.ErrConflict)
	}
	return err
}

// GetUnit retrieves a unit by store number
func (db *DB) GetUnit(ctx context.Context, storeNumber string) (*inventory.StorageUnit, error) {
	row := db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM storage_units WHERE store_number = ?`, storeNumber)
	return scanUnit(row)
}

// UpdateUnit saves a unit's name and cost
func (db *DB) UpdateUnit(ctx context.Context, unit *inventory.StorageUnit) error {
	result, err := db.ExecContext(ctx, `
		UPDATE storage_units
		SET name = ?, cost = ?, updated_at = ?
		WHERE store_number = ?
	`, unit.Name, unit.Cost, unit.UpdatedAt.UTC(), unit.StoreNumber)
	if err != nil {
		return err
	}
	return expectAffected(result, "unit "+unit.StoreNumber)
}

// DeleteUnit removes a unit, first moving its items to reassignTo when set
func (db *DB) DeleteUnit(ctx context.Context, storeNumber, reassignTo string, requireEmpty bool) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete unit: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM storage_units WHERE store_number = ?", storeNumber)
	if err != nil {
		return 0, err
	}
	if err := expectAffected(result, "unit "+storeNumber); err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory_items WHERE storage_unit_id = ?", storeNumber).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unit items: %w", err)
	}
	if requireEmpty && count > 0 {
		return count, fmt.Errorf("unit %s: %w", storeNumber, inventory.ErrNotEmpty)
	}

	if reassignTo != "" && count > 0 {
		result, err = tx.ExecContext(ctx, `
			UPDATE inventory_items SET storage_unit_id = ?, updated_at = ?
			WHERE storage_unit_id = ?
		`, reassignTo, time.Now().UTC(), storeNumber)
		if err != nil {
			return 0, fmt.Errorf("reassign items: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		count = int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete unit: %w", err)
	}
	return count, nil
}

// ListUnits returns every unit ordered by store number
func (db *DB) ListUnits(ctx context.Context) ([]*inventory.StorageUnit, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+unitColumns+` FROM storage_units ORDER BY store_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []*inventory.StorageUnit{}
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func scanItem(row rowScanner) (*inventory.InventoryItem, error) {
	var rec inventory.ItemRecord
	err := row.Scan(&rec.ID, &rec.SKU, &rec.Title, &rec.StorageUnitID,
		&rec.SoldPrice, &rec.ShippingCost, &rec.ItemCost,
		&rec.EbayOfferID, &rec.EbayListingID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inventory.Hydrate(rec), nil
}

func collectItems(rows *sql.Rows) ([]*inventory.InventoryItem, error) {
	defer rows.Close()

	items := []*inventory.InventoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanUnit(row rowScanner) (*inventory.StorageUnit, error) {
	var unit inventory.StorageUnit
	err := row.Scan(&unit.ID, &unit.StoreNumber, &unit.Name, &unit.Cost, &unit.CreatedAt, &unit.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func expectAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, inventory.ErrNotFound)
	}
	return nil
}
