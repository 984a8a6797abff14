package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/julienbonastre/scantosold/internal/calculator"
	"github.com/julienbonastre/scantosold/internal/database"
	"github.com/julienbonastre/scantosold/internal/ebay"
	"github.com/julienbonastre/scantosold/internal/inventory"
	"github.com/julienbonastre/scantosold/internal/logger"
	"github.com/julienbonastre/scantosold/internal/metrics"
	ebaysync "github.com/julienbonastre/scantosold/internal/sync"
)

// EbayClient is the part of the eBay client the handlers use
type EbayClient interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) error
	Disconnect(ctx context.Context) error
	Marketplace() string
	IsAuthenticated() bool
	IsConfigured() bool
	ListAllListings(ctx context.Context) ([]ebay.Listing, error)
	Publish(ctx context.Context, req ebay.PublishRequest) (*ebay.PublishResult, error)
}

// HistorySource lists past sync runs
type HistorySource interface {
	GetSyncHistory(ctx context.Context, limit int) ([]database.SyncHistory, error)
}

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the handler dependencies. Idempotency and MetricsHandler
// are optional.
type Options struct {
	Items          *inventory.Service
	Sync           *ebaysync.Service
	Ebay           EbayClient
	History        HistorySource
	Sessions       sessions.Store
	Idempotency    IdempotencyStore
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Dependencies   map[string]Pinger
	Logger         *logger.Logger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	items          *inventory.Service
	syncer         *ebaysync.Service
	ebayClient     EbayClient
	history        HistorySource
	sessions       sessions.Store
	idempotency    IdempotencyStore
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	dependencies   map[string]Pinger
	log            *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Handler{
		items:          opts.Items,
		syncer:         opts.Sync,
		ebayClient:     opts.Ebay,
		history:        opts.History,
		sessions:       opts.Sessions,
		idempotency:    opts.Idempotency,
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
		dependencies:   opts.Dependencies,
		log:            opts.Logger,
	}
}

// Router builds the HTTP routes
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID(h.log))
	r.Use(Recoverer(h.log))
	r.Use(Logging(h.log))
	r.Use(Metrics(h.metrics))

	if h.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", h.metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)
		r.Post("/calculate", h.Calculate)
		r.Get("/stats", h.GetStats)
		r.Get("/export.csv", h.ExportCSV)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.With(Idempotency(h.idempotency, h.log)).Post("/", h.CreateItem)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetItem)
				r.Patch("/", h.UpdateItem)
				r.Delete("/", h.DeleteItem)
				r.Post("/move", h.MoveItem)
				r.With(Idempotency(h.idempotency, h.log)).Post("/publish", h.PublishItem)
			})
		})

		r.Route("/units", func(r chi.Router) {
			r.Get("/", h.ListUnits)
			r.Post("/", h.CreateUnit)
			r.Route("/{storeNumber}", func(r chi.Router) {
				r.Get("/", h.GetUnit)
				r.Patch("/", h.UpdateUnit)
				r.Delete("/", h.DeleteUnit)
				r.Get("/stats", h.GetUnitStats)
			})
		})

		r.Get("/auth/url", h.GetAuthURL)
		r.Get("/auth/status", h.GetAuthStatus)
		r.Delete("/auth", h.Disconnect)
		r.Get("/oauth/callback", h.OAuthCallback)
		r.Get("/ebay/reconcile", h.Reconcile)
		r.Post("/ebay/import", h.ImportShadows)
		r.Get("/sync/history", h.GetSyncHistory)
	})
	return r
}

// HealthCheck returns API health status. A failing dependency turns the
// answer into 503.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	deps := make(map[string]string, len(h.dependencies))
	for name, dep := range h.dependencies {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := dep.Ping(ctx)
		cancel()
		if err != nil {
			h.log.Error(h.log.WithField(r.Context(), "dependency", name), "health check failed", err)
			deps[name] = "down"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	jsonResponse(w, code, map[string]any{
		"status":        status,
		"time":          time.Now().UTC(),
		"dependencies":  deps,
		"authenticated": h.ebayClient != nil && h.ebayClient.IsAuthenticated(),
		"configured":    h.ebayClient != nil && h.ebayClient.IsConfigured(),
	})
}

type calculateRequest struct {
	SoldPrice    float64 `json:"sold_price" validate:"min=0"`
	ItemCost     float64 `json:"item_cost" validate:"min=0"`
	ShippingCost float64 `json:"shipping_cost" validate:"min=0"`
}

type calculateResponse struct {
	Calculation calculator.ProfitCalculation `json:"calculation"`
	CostCode    string                       `json:"cost_code"`
}

// Calculate values a sale without storing anything
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}

	calc, err := calculator.ComputeStrict(req.SoldPrice, req.ItemCost, req.ShippingCost)
	if err != nil {
		errorResponse(r.Context(), h.log, w, invalidInput(err))
		return
	}

	jsonResponse(w, http.StatusOK, calculateResponse{
		Calculation: calc,
		CostCode:    calculator.CostCode(req.ItemCost),
	})
}
