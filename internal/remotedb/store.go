package remotedb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/julienbonastre/scantosold/internal/inventory"
)

var _ inventory.Store = (*Client)(nil)

// CreateItem persists a new item row.
func (c *Client) CreateItem(ctx context.Context, item *inventory.InventoryItem) error {
	if err := c.db(ctx).Create(newItemRow(item)).Error; err != nil {
		return translate(err, "sku "+item.SKU)
	}
	return nil
}

// GetItem loads an item by id.
func (c *Client) GetItem(ctx context.Context, id string) (*inventory.InventoryItem, error) {
	var row itemRow
	if err := c.db(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err, "item "+id)
	}
	return row.toDomain(), nil
}

// GetItemBySKU loads an item by SKU, ignoring case.
func (c *Client) GetItemBySKU(ctx context.Context, sku string) (*inventory.InventoryItem, error) {
	var row itemRow
	if err := c.db(ctx).Where("LOWER(sku) = LOWER(?)", sku).First(&row).Error; err != nil {
		return nil, translate(err, "sku "+sku)
	}
	return row.toDomain(), nil
}

// UpdateItem writes every mutable column, derived ones included, in one statement.
func (c *Client) UpdateItem(ctx context.Context, item *inventory.InventoryItem) error {
	row := newItemRow(item)
	result := c.db(ctx).Model(&itemRow{}).Where("id = ?", row.ID).Updates(map[string]any{
		"title":           row.Title,
		"storage_unit_id": row.StorageUnitID,
		"sold_price":      row.SoldPrice,
		"shipping_cost":   row.ShippingCost,
		"item_cost":       row.ItemCost,
		"platform_fees":   row.PlatformFees,
		"net_profit":      row.NetProfit,
		"is_profitable":   row.IsProfitable,
		"cost_code":       row.CostCode,
		"ebay_offer_id":   row.EbayOfferID,
		"ebay_listing_id": row.EbayListingID,
		"updated_at":      row.UpdatedAt,
	})
	return affected(result, "item "+row.ID)
}

// DeleteItem removes an item row.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return affected(c.db(ctx).Where("id = ?", id).Delete(&itemRow{}), "item "+id)
}

// ListItems returns every item ordered by creation time.
func (c *Client) ListItems(ctx context.Context) ([]*inventory.InventoryItem, error) {
	var rows []itemRow
	if err := c.db(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return itemsToDomain(rows), nil
}

// ListItemsByUnit returns the items referencing a store number.
func (c *Client) ListItemsByUnit(ctx context.Context, storeNumber string) ([]*inventory.InventoryItem, error) {
	var rows []itemRow
	if err := c.db(ctx).Where("storage_unit_id = ?", storeNumber).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return itemsToDomain(rows), nil
}

// CreateUnit persists a new unit row.
func (c *Client) CreateUnit(ctx context.Context, unit *inventory.StorageUnit) error {
	if err := c.db(ctx).Create(newUnitRow(unit)).Error; err != nil {
		return translate(err, "store number "+unit.StoreNumber)
	}
	return nil
}

// GetUnit loads a unit by store number.
func (c *Client) GetUnit(ctx context.Context, storeNumber string) (*inventory.StorageUnit, error) {
	var row unitRow
	if err := c.db(ctx).Where("store_number = ?", storeNumber).First(&row).Error; err != nil {
		return nil, translate(err, "unit "+storeNumber)
	}
	return row.toDomain(), nil
}

// UpdateUnit saves a unit's name and cost.
func (c *Client) UpdateUnit(ctx context.Context, unit *inventory.StorageUnit) error {
	result := c.db(ctx).Model(&unitRow{}).Where("store_number = ?", unit.StoreNumber).Updates(map[string]any{
		"name":       unit.Name,
		"cost":       unit.Cost,
		"updated_at": unit.UpdatedAt,
	})
	return affected(result, "unit "+unit.StoreNumber)
}

// DeleteUnit removes a unit, first moving its items to reassignTo when set.
func (c *Client) DeleteUnit(ctx context.Context, storeNumber, reassignTo string, requireEmpty bool) (int, error) {
	var count int64
	err := c.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := affected(tx.Where("store_number = ?", storeNumber).Delete(&unitRow{}), "unit "+storeNumber); err != nil {
			return err
		}
		if err := tx.Model(&itemRow{}).Where("storage_unit_id = ?", storeNumber).Count(&count).Error; err != nil {
			return fmt.Errorf("count unit items: %w", err)
		}
		if requireEmpty && count > 0 {
			return fmt.Errorf("unit %s: %w", storeNumber, inventory.ErrNotEmpty)
		}
		if reassignTo != "" && count > 0 {
			result := tx.Model(&itemRow{}).Where("storage_unit_id = ?", storeNumber).Updates(map[string]any{
				"storage_unit_id": reassignTo,
				"updated_at":      time.Now().UTC(),
			})
			if result.Error != nil {
				return fmt.Errorf("reassign items: %w", result.Error)
			}
			count = result.RowsAffected
		}
		return nil
	})
	if errors.Is(err, inventory.ErrNotEmpty) {
		return int(count), err
	}
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ListUnits returns every unit ordered by store number.
func (c *Client) ListUnits(ctx context.Context) ([]*inventory.StorageUnit, error) {
	var rows []unitRow
	if err := c.db(ctx).Order("store_number").Find(&rows).Error; err != nil {
		return nil, err
	}
	units := make([]*inventory.StorageUnit, 0, len(rows))
	for i := range rows {
		units = append(units, rows[i].toDomain())
	}
	return units, nil
}

func itemsToDomain(rows []itemRow) []*inventory.InventoryItem {
	items := make([]*inventory.InventoryItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDomain())
	}
	return items
}

func translate(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, inventory.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, inventory.ErrConflict)
	default:
		return err
	}
}

func affected(result *gorm.DB, what string) error {
	if result.Error != nil {
		return translate(result.Error, what)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, inventory.ErrNotFound)
	}
	return nil
}
