package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julienbonastre/scantosold/internal/calculator"
)

// StorageUnit is a rented unit with a fixed recurring cost. Items reference
// it by StoreNumber. ROI figures are never stored on the unit.
type StorageUnit struct {
	ID          string    `json:"id"`
	StoreNumber string    `json:"store_number"`
	Name        string    `json:"name"`
	Cost        float64   `json:"cost"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnitUpdate carries edited unit fields; nil means unchanged
type UnitUpdate struct {
	Name *string
	Cost *float64
}

// NewUnit validates and creates a storage unit
func NewUnit(storeNumber, name string, cost float64) (*StorageUnit, error) {
	storeNumber = strings.TrimSpace(storeNumber)
	if storeNumber == "" {
		return nil, fmt.Errorf("%w: store number is required", ErrInvalid)
	}
	if err := validateCost(cost); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &StorageUnit{
		ID:          uuid.NewString(),
		StoreNumber: storeNumber,
		Name:        strings.TrimSpace(name),
		Cost:        cost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply validates and applies an update
func (u *StorageUnit) Apply(update UnitUpdate) error {
	if update.Cost != nil {
		if err := validateCost(*update.Cost); err != nil {
			return err
		}
		u.Cost = *update.Cost
	}
	if update.Name != nil {
		u.Name = strings.TrimSpace(*update.Name)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func validateCost(cost float64) error {
	if calculator.Sanitize(cost) != cost {
		return &calculator.InvalidInputError{Field: "cost", Value: cost}
	}
	return nil
}
