package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/julienbonastre/scantosold/internal/apperr"
	"github.com/julienbonastre/scantosold/internal/calculator"
	"github.com/julienbonastre/scantosold/internal/logger"
	"github.com/julienbonastre/scantosold/internal/metrics"
)

// DeletePolicy decides what happens to items whose unit is deleted
type DeletePolicy string

const (
	// PolicyBlock refuses to delete a unit that still has items
	PolicyBlock DeletePolicy = "block"
	// PolicyOrphan deletes the unit and leaves items pointing at it
	PolicyOrphan DeletePolicy = "orphan"
	// PolicyReassign moves items to the default unit before deleting
	PolicyReassign DeletePolicy = "reassign"
)

// ParseDeletePolicy parses a configured policy name
func ParseDeletePolicy(value string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case PolicyBlock, PolicyOrphan, PolicyReassign:
		return p, nil
	case "":
		return PolicyBlock, nil
	default:
		return "", fmt.Errorf("unknown unit delete policy %q", value)
	}
}

// Options configures a Service
type Options struct {
	DeletePolicy DeletePolicy
	DefaultUnit  string
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

// Service coordinates items, units and the profit engine
type Service struct {
	store       Store
	policy      DeletePolicy
	defaultUnit string
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// CreateItemInput is the data needed to track a new item
type CreateItemInput struct {
	SKU           string
	Title         string
	StorageUnitID string
	SoldPrice     float64
	ItemCost      float64
	ShippingCost  float64
	EbayOfferID   string
	EbayListingID string
}

// UnitReport is a unit with its on-demand rollup
type UnitReport struct {
	Unit      *StorageUnit         `json:"unit"`
	Stats     calculator.UnitStats `json:"stats"`
	ItemCount int                  `json:"item_count"`
}

// DeleteUnitResult describes what a unit deletion did to its items
type DeleteUnitResult struct {
	Policy        DeletePolicy `json:"policy"`
	ItemsAffected int          `json:"items_affected"`
	ReassignedTo  string       `json:"reassigned_to,omitempty"`
}

// NewService wires a service over the given store
func NewService(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("inventory store required")
	}
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = PolicyBlock
	}
	if opts.DeletePolicy == PolicyReassign && strings.TrimSpace(opts.DefaultUnit) == "" {
		return nil, errors.New("reassign policy requires a default unit")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		store:       store,
		policy:      opts.DeletePolicy,
		defaultUnit: strings.TrimSpace(opts.DefaultUnit),
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}, nil
}

// CreateItem values a new item and assigns it to an existing unit
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*InventoryItem, error) {
	if _, err := s.requireUnit(ctx, input.StorageUnitID); err != nil {
		return nil, err
	}

	item, err := NewItem(NewItemParams(input))
	if err != nil {
		return nil, mapError(err, "create item")
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, mapError(err, "create item")
	}

	s.metrics.ObserveCalculation(item.Calculation())
	ctx = s.log.WithFields(ctx, map[string]any{"item_id": item.ID, "sku": item.SKU, "unit": item.StorageUnitID})
	s.log.Info(ctx, "item created")
	return item, nil
}

// GetItem returns one item
func (s *Service) GetItem(ctx context.Context, id string) (*InventoryItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, mapError(err, "item "+id)
	}
	return item, nil
}

// ListItems returns every item, or only those in storeNumber when set
func (s *Service) ListItems(ctx context.Context, storeNumber string) ([]*InventoryItem, error) {
	var (
		items []*InventoryItem
		err   error
	)
	if storeNumber = strings.TrimSpace(storeNumber); storeNumber != "" {
		items, err = s.store.ListItemsByUnit(ctx, storeNumber)
	} else {
		items, err = s.store.ListItems(ctx)
	}
	if err != nil {
		return nil, mapError(err, "list items")
	}
	return items, nil
}

// UpdateItem applies an edit. The calculation and cost code are recomputed
// together and persisted in a single write.
func (s *Service) UpdateItem(ctx context.Context, id string, update ItemUpdate) (*InventoryItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, mapError(err, "item "+id)
	}
	if err := item.Reprice(update); err != nil {
		return nil, mapError(err, "update item")
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, mapError(err, "update item")
	}

	s.metrics.ObserveCalculation(item.Calculation())
	s.log.Info(s.log.WithField(ctx, "item_id", item.ID), "item repriced")
	return item, nil
}

// MoveItem reassigns an item to another existing unit
func (s *Service) MoveItem(ctx context.Context, id, storeNumber string) (*InventoryItem, error) {
	if _, err := s.requireUnit(ctx, storeNumber); err != nil {
		return nil, err
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, mapError(err, "item "+id)
	}
	if err := item.MoveTo(storeNumber); err != nil {
		return nil, mapError(err, "move item")
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, mapError(err, "move item")
	}
	return item, nil
}

// MarkPublished records the eBay offer and listing created for an item
func (s *Service) MarkPublished(ctx context.Context, id, offerID, listingID string) (*InventoryItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, mapError(err, "item "+id)
	}
	item.EbayOfferID = offerID
	item.EbayListingID = listingID
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, mapError(err, "mark published")
	}
	return item, nil
}

// DeleteItem removes an item
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return mapError(err, "item "+id)
	}
	s.log.Info(s.log.WithField(ctx, "item_id", id), "item deleted")
	return nil
}

// CreateUnit registers a storage unit; store numbers are unique
func (s *Service) CreateUnit(ctx context.Context, storeNumber, name string, cost float64) (*StorageUnit, error) {
	unit, err := NewUnit(storeNumber, name, cost)
	if err != nil {
		return nil, mapError(err, "create unit")
	}
	if err := s.store.CreateUnit(ctx, unit); err != nil {
		return nil, mapError(err, "unit "+unit.StoreNumber)
	}
	return unit, nil
}

// GetUnit returns one unit
func (s *Service) GetUnit(ctx context.Context, storeNumber string) (*StorageUnit, error) {
	unit, err := s.store.GetUnit(ctx, storeNumber)
	if err != nil {
		return nil, mapError(err, "unit "+storeNumber)
	}
	return unit, nil
}

// ListUnits returns every unit
func (s *Service) ListUnits(ctx context.Context) ([]*StorageUnit, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return nil, mapError(err, "list units")
	}
	return units, nil
}

// UpdateUnit edits a unit's name or cost
func (s *Service) UpdateUnit(ctx context.Context, storeNumber string, update UnitUpdate) (*StorageUnit, error) {
	unit, err := s.store.GetUnit(ctx, storeNumber)
	if err != nil {
		return nil, mapError(err, "unit "+storeNumber)
	}
	if err := unit.Apply(update); err != nil {
		return nil, mapError(err, "update unit")
	}
	if err := s.store.UpdateUnit(ctx, unit); err != nil {
		return nil, mapError(err, "update unit")
	}
	return unit, nil
}

// DeleteUnit removes a unit according to the configured policy
func (s *Service) DeleteUnit(ctx context.Context, storeNumber string) (*DeleteUnitResult, error) {
	if _, err := s.store.GetUnit(ctx, storeNumber); err != nil {
		return nil, mapError(err, "unit "+storeNumber)
	}

	result := &DeleteUnitResult{Policy: s.policy}
	reassignTo := ""
	if s.policy == PolicyReassign {
		if s.defaultUnit == storeNumber {
			return nil, apperr.New(apperr.CodeConflict, "cannot delete the default unit while the reassign policy is active")
		}
		if _, err := s.requireUnit(ctx, s.defaultUnit); err != nil {
			return nil, err
		}
		reassignTo = s.defaultUnit
		result.ReassignedTo = reassignTo
	}

	count, err := s.store.DeleteUnit(ctx, storeNumber, reassignTo, s.policy == PolicyBlock)
	if errors.Is(err, ErrNotEmpty) {
		return nil, apperr.Wrap(apperr.CodeConflict, err, "storage unit still has items").
			WithDetails(map[string]any{"store_number": storeNumber, "items": count})
	}
	if err != nil {
		return nil, mapError(err, "unit "+storeNumber)
	}
	result.ItemsAffected = count

	ctx = s.log.WithFields(ctx, map[string]any{
		"unit":           storeNumber,
		"policy":         string(s.policy),
		"items_affected": result.ItemsAffected,
	})
	s.log.Info(ctx, "storage unit deleted")
	return result, nil
}

// UnitStats rolls up the unit's current items on demand
func (s *Service) UnitStats(ctx context.Context, storeNumber string) (*UnitReport, error) {
	unit, err := s.store.GetUnit(ctx, storeNumber)
	if err != nil {
		return nil, mapError(err, "unit "+storeNumber)
	}
	items, err := s.store.ListItemsByUnit(ctx, unit.StoreNumber)
	if err != nil {
		return nil, mapError(err, "unit stats")
	}
	return buildReport(unit, items), nil
}

// AllUnitStats rolls up every unit, ordered by store number
func (s *Service) AllUnitStats(ctx context.Context) ([]UnitReport, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		return nil, mapError(err, "list units")
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, mapError(err, "list items")
	}

	byUnit := make(map[string][]*InventoryItem, len(units))
	for _, item := range items {
		byUnit[item.StorageUnitID] = append(byUnit[item.StorageUnitID], item)
	}

	reports := make([]UnitReport, 0, len(units))
	for _, unit := range units {
		reports = append(reports, *buildReport(unit, byUnit[unit.StoreNumber]))
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Unit.StoreNumber < reports[j].Unit.StoreNumber
	})
	return reports, nil
}

// Dashboard totals every tracked item
func (s *Service) Dashboard(ctx context.Context) (calculator.Totals, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return calculator.Totals{}, mapError(err, "list items")
	}
	return calculator.Summarize(Calculations(items)), nil
}

// Calculations extracts the calculation of each item
func Calculations(items []*InventoryItem) []calculator.ProfitCalculation {
	calcs := make([]calculator.ProfitCalculation, 0, len(items))
	for _, item := range items {
		calcs = append(calcs, item.Calculation())
	}
	return calcs
}

func buildReport(unit *StorageUnit, items []*InventoryItem) *UnitReport {
	return &UnitReport{
		Unit:      unit,
		Stats:     calculator.Rollup(unit.Cost, Calculations(items)),
		ItemCount: len(items),
	}
}

func (s *Service) requireUnit(ctx context.Context, storeNumber string) (*StorageUnit, error) {
	storeNumber = strings.TrimSpace(storeNumber)
	if storeNumber == "" {
		return nil, apperr.New(apperr.CodeValidation, "storage unit is required").
			WithDetails(map[string]string{"storage_unit_id": "is required"})
	}
	unit, err := s.store.GetUnit(ctx, storeNumber)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.New(apperr.CodeValidation, "unknown storage unit").
			WithDetails(map[string]string{"storage_unit_id": storeNumber})
	}
	if err != nil {
		return nil, mapError(err, "unit "+storeNumber)
	}
	return unit, nil
}

// mapError translates domain and repository errors into coded errors
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if typed := apperr.As(err); typed != nil {
		return typed
	}

	var invalid *calculator.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return apperr.Wrap(apperr.CodeValidation, err, "invalid input").
			WithDetails(map[string]string{invalid.Field: "must be a non-negative number"})
	case errors.Is(err, ErrInvalid):
		return apperr.Wrap(apperr.CodeValidation, err, err.Error())
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, what+" not found")
	case errors.Is(err, ErrNotEmpty):
		return apperr.Wrap(apperr.CodeConflict, err, err.Error())
	case errors.Is(err, ErrConflict):
		return apperr.Wrap(apperr.CodeConflict, err, what+" already exists")
	default:
		return apperr.Wrap(apperr.CodeInternal, err, what)
	}
}
