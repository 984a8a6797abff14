package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every variable, e.g. STS_APP_PORT
const EnvPrefix = "STS"

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration sourced from the environment
type Config struct {
	App   AppConfig
	Store StoreConfig
	Units UnitsConfig
	Ebay  EbayConfig
	Redis RedisConfig
}

type AppConfig struct {
	Port          string `envconfig:"PORT" default:"8080"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"json"`
	SessionSecret string `envconfig:"SESSION_SECRET"`
}

type StoreConfig struct {
	Backend     string `envconfig:"BACKEND" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"scantosold.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

// UnitsConfig decides what happens to items when their storage unit is deleted
type UnitsConfig struct {
	DeletePolicy string `envconfig:"DELETE_POLICY" default:"block"`
	DefaultUnit  string `envconfig:"DEFAULT_UNIT"`
}

type EbayConfig struct {
	ClientID            string `envconfig:"CLIENT_ID"`
	ClientSecret        string `envconfig:"CLIENT_SECRET"`
	RedirectURI         string `envconfig:"REDIRECT_URI"`
	Sandbox             bool   `envconfig:"SANDBOX" default:"true"`
	MarketplaceID       string `envconfig:"MARKETPLACE_ID" default:"EBAY_US"`
	Currency            string `envconfig:"CURRENCY" default:"USD"`
	CategoryID          string `envconfig:"CATEGORY_ID"`
	MerchantLocationKey string `envconfig:"MERCHANT_LOCATION_KEY"`
	FulfillmentPolicyID string `envconfig:"FULFILLMENT_POLICY_ID"`
	PaymentPolicyID     string `envconfig:"PAYMENT_POLICY_ID"`
	ReturnPolicyID      string `envconfig:"RETURN_POLICY_ID"`
	// EncryptionKey is base64 and must decode to 32 bytes
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`
}

type RedisConfig struct {
	URL string `envconfig:"URL"`
}

// Load reads .env (best effort) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations envconfig cannot express
func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("config: STS_STORE_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("config: STS_STORE_POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	c.Units.DeletePolicy = strings.ToLower(strings.TrimSpace(c.Units.DeletePolicy))
	switch c.Units.DeletePolicy {
	case "block", "orphan":
	case "reassign":
		if strings.TrimSpace(c.Units.DefaultUnit) == "" {
			return errors.New("config: STS_UNITS_DEFAULT_UNIT is required when the delete policy is reassign")
		}
	default:
		return fmt.Errorf("config: unknown unit delete policy %q", c.Units.DeletePolicy)
	}
	return nil
}

// EbayConfigured reports whether eBay credentials are present
func (c *Config) EbayConfigured() bool {
	return c.Ebay.ClientID != "" && c.Ebay.ClientSecret != ""
}
