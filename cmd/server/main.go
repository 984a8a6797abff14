package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julienbonastre/scantosold/internal/cache"
	"github.com/julienbonastre/scantosold/internal/config"
	"github.com/julienbonastre/scantosold/internal/database"
	"github.com/julienbonastre/scantosold/internal/ebay"
	"github.com/julienbonastre/scantosold/internal/handlers"
	"github.com/julienbonastre/scantosold/internal/inventory"
	"github.com/julienbonastre/scantosold/internal/logger"
	"github.com/julienbonastre/scantosold/internal/metrics"
	"github.com/julienbonastre/scantosold/internal/remotedb"
	ebaysync "github.com/julienbonastre/scantosold/internal/sync"
)

const serviceName = "scantosold"

func main() {
	// Command line flags override the environment
	port := flag.String("port", "", "Server port (overrides STS_APP_PORT)")
	sandbox := flag.Bool("sandbox", true, "Use eBay sandbox environment (overrides STS_EBAY_SANDBOX)")
	dbPath := flag.String("db", "", "SQLite database path (overrides STS_STORE_SQLITE_PATH)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.SQLitePath = *dbPath
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "sandbox" {
			cfg.Ebay.Sandbox = *sandbox
		}
	})

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The local database always holds sessions, settings and sync history;
	// items and units live here too unless the postgres backend is selected.
	db, err := database.Open(cfg.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("open local database: %w", err)
	}
	defer db.Close()

	dependencies := map[string]handlers.Pinger{}

	var store inventory.Store = db
	if cfg.Store.Backend == config.BackendPostgres {
		remote, err := remotedb.Open(ctx, cfg.Store.PostgresDSN, logg)
		if err != nil {
			return fmt.Errorf("open remote database: %w", err)
		}
		defer func() {
			if err := remote.Close(); err != nil {
				logg.Error(context.Background(), "error closing remote database", err)
			}
		}()
		store = remote
		dependencies["postgres"] = remote
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	policy, err := inventory.ParseDeletePolicy(cfg.Units.DeletePolicy)
	if err != nil {
		return err
	}
	items, err := inventory.NewService(store, inventory.Options{
		DeletePolicy: policy,
		DefaultUnit:  cfg.Units.DefaultUnit,
		Logger:       logg,
		Metrics:      m,
	})
	if err != nil {
		return err
	}

	ebayClient, err := newEbayClient(ctx, cfg, db, logg)
	if err != nil {
		return err
	}

	var idempotency handlers.IdempotencyStore
	if cfg.Redis.URL != "" {
		redisClient, err := cache.New(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idempotency = redisClient
		dependencies["redis"] = redisClient
	} else {
		logg.Warn(ctx, "STS_REDIS_URL not set - Idempotency-Key headers are ignored")
	}

	sessionKey := []byte(cfg.App.SessionSecret)
	if len(sessionKey) == 0 {
		logg.Warn(ctx, "STS_APP_SESSION_SECRET not set - OAuth sessions will not survive a restart")
		sessionKey = securecookie.GenerateRandomKey(32)
	}
	sessionStore := database.NewSessionStore(db, sessionKey)
	go cleanupSessions(ctx, sessionStore, logg)

	h := handlers.NewHandler(handlers.Options{
		Items:          items,
		Sync:           ebaysync.NewService(db, items, logg, m),
		Ebay:           ebayClient,
		History:        db,
		Sessions:       sessionStore,
		Idempotency:    idempotency,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Dependencies:   dependencies,
		Logger:         logg,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"addr":          server.Addr,
		"store_backend": cfg.Store.Backend,
		"sandbox":       cfg.Ebay.Sandbox,
		"delete_policy": string(policy),
	}), "starting scantosold server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newEbayClient(ctx context.Context, cfg *config.Config, db *database.DB, logg *logger.Logger) (*ebay.Client, error) {
	redirectURI := cfg.Ebay.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:" + cfg.App.Port + "/api/oauth/callback"
	}

	client := ebay.NewClient(ebay.Config{
		ClientID:            cfg.Ebay.ClientID,
		ClientSecret:        cfg.Ebay.ClientSecret,
		RedirectURI:         redirectURI,
		Sandbox:             cfg.Ebay.Sandbox,
		MarketplaceID:       cfg.Ebay.MarketplaceID,
		Currency:            cfg.Ebay.Currency,
		CategoryID:          cfg.Ebay.CategoryID,
		MerchantLocationKey: cfg.Ebay.MerchantLocationKey,
		FulfillmentPolicyID: cfg.Ebay.FulfillmentPolicyID,
		PaymentPolicyID:     cfg.Ebay.PaymentPolicyID,
		ReturnPolicyID:      cfg.Ebay.ReturnPolicyID,
	})

	if !cfg.EbayConfigured() {
		logg.Warn(ctx, "STS_EBAY_CLIENT_ID not set - eBay API calls will fail")
		return client, nil
	}
	if cfg.Ebay.EncryptionKey == "" {
		logg.Warn(ctx, "STS_EBAY_ENCRYPTION_KEY not set - the eBay token is kept in memory only")
		return client, nil
	}

	key, err := database.ParseEncryptionKey(cfg.Ebay.EncryptionKey)
	if err != nil {
		return nil, err
	}
	vault, err := database.NewTokenVault(db, key)
	if err != nil {
		return nil, err
	}
	client.WithTokenStore(vault)

	restored, err := client.Restore(ctx)
	if err != nil {
		logg.Error(ctx, "failed to restore eBay token", err)
	} else if restored {
		logg.Info(ctx, "restored eBay token")
	}
	return client, nil
}

func cleanupSessions(ctx context.Context, store *database.SessionStore, logg *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logg.Error(ctx, "session cleanup failed", err)
				continue
			}
			if n > 0 {
				logg.Debug(logg.WithField(ctx, "removed", n), "expired sessions removed")
			}
		}
	}
}
