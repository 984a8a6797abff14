package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienbonastre/scantosold/internal/database"
	"github.com/julienbonastre/scantosold/internal/ebay"
	"github.com/julienbonastre/scantosold/internal/inventory"
	"github.com/julienbonastre/scantosold/internal/logger"
	"github.com/julienbonastre/scantosold/internal/metrics"
)

const (
	kindReconcile = "reconcile"
	kindImport    = "import"

	statusRunning = "running"
	statusSuccess = "success"
	statusPartial = "partial"
	statusFailed  = "failed"
)

// Lister fetches every listing of the connected eBay account
type Lister interface {
	ListAllListings(ctx context.Context) ([]ebay.Listing, error)
}

// HistoryStore records sync runs
type HistoryStore interface {
	CreateSyncHistory(ctx context.Context, sh *database.SyncHistory) error
	UpdateSyncHistory(ctx context.Context, sh *database.SyncHistory) error
}

// Service reconciles local inventory with eBay
type Service struct {
	history HistoryStore
	items   *inventory.Service
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Report is the outcome of a reconcile run
type Report struct {
	HistoryID int64          `json:"history_id"`
	Items     []MergedItem   `json:"items"`
	Counts    map[Source]int `json:"counts"`
}

// ImportResult is the outcome of importing eBay-only listings
type ImportResult struct {
	HistoryID int64    `json:"history_id"`
	Imported  int      `json:"imported"`
	Failed    []string `json:"failed,omitempty"`
}

// NewService creates a new sync service
func NewService(history HistoryStore, items *inventory.Service, logg *logger.Logger, m *metrics.Metrics) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{history: history, items: items, log: logg, metrics: m}
}

// Reconcile merges every eBay listing with the local inventory
func (s *Service) Reconcile(ctx context.Context, client Lister) (*Report, error) {
	run, err := s.begin(ctx, kindReconcile)
	if err != nil {
		return nil, err
	}

	merged, err := s.merge(ctx, client)
	if err != nil {
		s.finish(ctx, run, 0, err)
		return nil, err
	}

	s.finish(ctx, run, len(merged), nil)
	return &Report{HistoryID: run.ID, Items: merged, Counts: Count(merged)}, nil
}

// ImportShadows stores every eBay-only listing as a local item in storeNumber.
// Failures on single listings do not stop the run; it ends as partial.
func (s *Service) ImportShadows(ctx context.Context, client Lister, storeNumber string) (*ImportResult, error) {
	if _, err := s.items.GetUnit(ctx, storeNumber); err != nil {
		return nil, err
	}

	run, err := s.begin(ctx, kindImport)
	if err != nil {
		return nil, err
	}

	merged, err := s.merge(ctx, client)
	if err != nil {
		s.finish(ctx, run, 0, err)
		return nil, err
	}

	result := &ImportResult{HistoryID: run.ID}
	var errs []error
	for _, row := range merged {
		if row.Source != SourceEbay {
			continue
		}
		if err := s.importShadow(ctx, row, storeNumber); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", row.SKU, err))
			result.Failed = append(result.Failed, row.SKU)
			continue
		}
		result.Imported++
	}

	runErr := errors.Join(errs...)
	s.finish(ctx, run, result.Imported, runErr)
	if runErr != nil && result.Imported == 0 {
		return result, runErr
	}
	return result, nil
}

func (s *Service) importShadow(ctx context.Context, row MergedItem, storeNumber string) error {
	input := inventory.CreateItemInput{
		SKU:           row.SKU,
		Title:         row.Title,
		StorageUnitID: storeNumber,
		SoldPrice:     row.Calculation.SoldPrice,
	}
	if row.Listing != nil {
		input.EbayOfferID = row.Listing.OfferID
		input.EbayListingID = row.Listing.ListingID
	}
	_, err := s.items.CreateItem(ctx, input)
	return err
}

func (s *Service) merge(ctx context.Context, client Lister) ([]MergedItem, error) {
	listings, err := client.ListAllListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ebay listings: %w", err)
	}
	local, err := s.items.ListItems(ctx, "")
	if err != nil {
		return nil, err
	}
	return Merge(local, listings), nil
}

func (s *Service) begin(ctx context.Context, kind string) (*database.SyncHistory, error) {
	run := &database.SyncHistory{
		SyncType:  kind,
		Status:    statusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.history.CreateSyncHistory(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create sync history: %w", err)
	}
	return run, nil
}

// finish closes the history row. A run with an error but some synced items
// is partial; with nothing synced it failed.
func (s *Service) finish(ctx context.Context, run *database.SyncHistory, synced int, runErr error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.ItemsSynced = synced
	switch {
	case runErr == nil:
		run.Status = statusSuccess
	case synced > 0:
		run.Status = statusPartial
		run.ErrorMessage = truncate(runErr.Error(), 1000)
	default:
		run.Status = statusFailed
		run.ErrorMessage = truncate(runErr.Error(), 1000)
	}

	s.metrics.IncSync(run.SyncType, run.Status)
	ctx = s.log.WithFields(ctx, map[string]any{
		"sync_id":      run.ID,
		"sync_type":    run.SyncType,
		"status":       run.Status,
		"items_synced": synced,
	})
	if runErr != nil {
		s.log.Error(ctx, "ebay sync finished with errors", runErr)
	} else {
		s.log.Info(ctx, "ebay sync complete")
	}

	if err := s.history.UpdateSyncHistory(ctx, run); err != nil {
		s.log.Error(ctx, "failed to update sync history", err)
	}
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
