// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"courierhub"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"courierhub"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Cache
	RedisAddr     string `envconfig:"REDIS_ADDR"` // empty runs the in-memory cache
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Delhivery carries one API key per weight tier; a tier with no key
	// stays unregistered.
	DelhiveryHalfKGAPIKey string `envconfig:"DELHIVERY_HALFKG_API_KEY"`
	Delhivery5KGAPIKey    string `envconfig:"DELHIVERY_5KG_API_KEY"`
	Delhivery10KGAPIKey   string `envconfig:"DELHIVERY_10KG_API_KEY"`
	DelhiveryBaseURL      string `envconfig:"DELHIVERY_BASE_URL" default:"https://track.delhivery.com"`
	DelhiveryEnabled      bool   `envconfig:"DELHIVERY_ENABLED" default:"true"`
	DelhiveryUseMock      bool   `envconfig:"DELHIVERY_USE_MOCK" default:"false"`

	// Shiprocket
	ShiprocketEmail    string `envconfig:"SHIPROCKET_EMAIL"`
	ShiprocketPassword string `envconfig:"SHIPROCKET_PASSWORD"`
	ShiprocketBaseURL  string `envconfig:"SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in"`
	ShiprocketEnabled  bool   `envconfig:"SHIPROCKET_ENABLED" default:"true"`
	ShiprocketUseMock  bool   `envconfig:"SHIPROCKET_USE_MOCK" default:"false"`

	// Xpressbees
	XpressbeesEmail    string `envconfig:"XPRESSBEES_EMAIL"`
	XpressbeesPassword string `envconfig:"XPRESSBEES_PASSWORD"`
	XpressbeesBaseURL  string `envconfig:"XPRESSBEES_BASE_URL" default:"https://shipment.xpressbees.com"`
	XpressbeesEnabled  bool   `envconfig:"XPRESSBEES_ENABLED" default:"true"`
	XpressbeesUseMock  bool   `envconfig:"XPRESSBEES_USE_MOCK" default:"false"`

	// Reconciler
	ReconcilerSchedule    string `envconfig:"RECONCILER_SCHEDULE" default:"*/15 * * * *"`
	ReconcilerBatchSize   int    `envconfig:"RECONCILER_BATCH_SIZE" default:"200"`
	ReconcilerConcurrency int    `envconfig:"RECONCILER_CONCURRENCY" default:"8"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"courierhub"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("delhivery.enabled", c.DelhiveryEnabled),
		attribute.Bool("shiprocket.enabled", c.ShiprocketEnabled),
		attribute.Bool("xpressbees.enabled", c.XpressbeesEnabled),
	}
}
