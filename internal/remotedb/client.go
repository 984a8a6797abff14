// Package remotedb is the hosted Postgres backend for items and units.
package remotedb

import (
	"context"
	"fmt"
	"io"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/julienbonastre/scantosold/internal/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(ctx context.Context, dsn string, logg *logger.Logger) (*Client, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	dialector := postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	})
	client, err := New(ctx, dialector)
	if err != nil {
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "remote database connection established")
	}
	return client, nil
}

// New opens a client over any GORM dialector and migrates the schema.
func New(ctx context.Context, dialector gorm.Dialector) (*Client, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	client := &Client{conn: conn}
	if err := client.migrate(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) migrate(ctx context.Context) error {
	db := c.conn.WithContext(ctx)
	if err := db.AutoMigrate(&unitRow{}, &itemRow{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// SKUs are unique regardless of case
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_sku_lower ON inventory_items (LOWER(sku))`).Error; err != nil {
		return fmt.Errorf("create sku index: %w", err)
	}
	return nil
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Client) db(ctx context.Context) *gorm.DB {
	return c.conn.WithContext(ctx)
}
