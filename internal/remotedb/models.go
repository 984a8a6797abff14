package remotedb

import (
	"time"

	"github.com/julienbonastre/scantosold/internal/inventory"
)

type unitRow struct {
	ID          string    `gorm:"primaryKey;type:text"`
	StoreNumber string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"not null;default:''"`
	Cost        float64   `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (unitRow) TableName() string { return "storage_units" }

// itemRow carries the derived columns so reports can be run in SQL; they are
// rebuilt from the prices whenever a row is loaded.
type itemRow struct {
	ID            string    `gorm:"primaryKey;type:text"`
	SKU           string    `gorm:"column:sku;not null"`
	Title         string    `gorm:"not null;default:''"`
	StorageUnitID string    `gorm:"index;not null"`
	SoldPrice     float64   `gorm:"not null;default:0"`
	ShippingCost  float64   `gorm:"not null;default:0"`
	ItemCost      float64   `gorm:"not null;default:0"`
	PlatformFees  float64   `gorm:"not null;default:0"`
	NetProfit     float64   `gorm:"not null;default:0"`
	IsProfitable  bool      `gorm:"not null;default:false"`
	CostCode      string    `gorm:"not null;default:'C0'"`
	EbayOfferID   string    `gorm:"not null;default:''"`
	EbayListingID string    `gorm:"not null;default:''"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (itemRow) TableName() string { return "inventory_items" }

func newItemRow(item *inventory.InventoryItem) *itemRow {
	rec := item.Record()
	calc := item.Calculation()
	return &itemRow{
		ID:            rec.ID,
		SKU:           rec.SKU,
		Title:         rec.Title,
		StorageUnitID: rec.StorageUnitID,
		SoldPrice:     calc.SoldPrice,
		ShippingCost:  calc.ShippingCost,
		ItemCost:      calc.ItemCost,
		PlatformFees:  calc.PlatformFees,
		NetProfit:     calc.NetProfit,
		IsProfitable:  calc.IsProfitable,
		CostCode:      item.CostCode(),
		EbayOfferID:   rec.EbayOfferID,
		EbayListingID: rec.EbayListingID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func (r *itemRow) toDomain() *inventory.InventoryItem {
	return inventory.Hydrate(inventory.ItemRecord{
		ID:            r.ID,
		SKU:           r.SKU,
		Title:         r.Title,
		StorageUnitID: r.StorageUnitID,
		SoldPrice:     r.SoldPrice,
		ShippingCost:  r.ShippingCost,
		ItemCost:      r.ItemCost,
		EbayOfferID:   r.EbayOfferID,
		EbayListingID: r.EbayListingID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	})
}

func newUnitRow(unit *inventory.StorageUnit) *unitRow {
	return &unitRow{
		ID:          unit.ID,
		StoreNumber: unit.StoreNumber,
		Name:        unit.Name,
		Cost:        unit.Cost,
		CreatedAt:   unit.CreatedAt,
		UpdatedAt:   unit.UpdatedAt,
	}
}

func (r *unitRow) toDomain() *inventory.StorageUnit {
	return &inventory.StorageUnit{
		ID:          r.ID,
		StoreNumber: r.StoreNumber,
		Name:        r.Name,
		Cost:        r.Cost,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
