package inventory

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	ErrNotEmpty = errors.New("storage unit still has items")
)

// ItemRepository persists inventory items. Both the local SQLite store and
// the remote Postgres store implement it.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *InventoryItem) error
	GetItem(ctx context.Context, id string) (*InventoryItem, error)
	GetItemBySKU(ctx context.Context, sku string) (*InventoryItem, error)
	UpdateItem(ctx context.Context, item *InventoryItem) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context) ([]*InventoryItem, error)
	ListItemsByUnit(ctx context.Context, storeNumber string) ([]*InventoryItem, error)
}

// UnitRepository persists storage units
type UnitRepository interface {
	CreateUnit(ctx context.Context, unit *StorageUnit) error
	GetUnit(ctx context.Context, storeNumber string) (*StorageUnit, error)
	UpdateUnit(ctx context.Context, unit *StorageUnit) error
	// DeleteUnit removes the unit and returns how many items it held. When
	// reassignTo is non-empty those items are moved there in the same
	// transaction. With requireEmpty set, a unit that still holds items is
	// kept and ErrNotEmpty is returned along with the item count.
	DeleteUnit(ctx context.Context, storeNumber, reassignTo string, requireEmpty bool) (int, error)
	ListUnits(ctx context.Context) ([]*StorageUnit, error)
}

// Store is a backend providing both repositories
type Store interface {
	ItemRepository
	UnitRepository
}
