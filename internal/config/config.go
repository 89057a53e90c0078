// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Stripe settings
	StripeSecretKey     string
	StripeWebhookSecret string

	// Escrow settings
	PlatformFeePercent int    // platform cut of each captured payment, 0-100
	Currency           string // ISO currency code for checkout sessions
	AppURL             string // public base URL for checkout redirect targets

	// Reconciliation
	ReconcileWindowMinutes int // how long a request may sit in escrow_pending before reconciliation

	// Security
	RateLimitRPS   int
	AllowedOrigins string // comma-separated CORS origins, "*" for all

	// Tracing
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultFeePercent      = 15
	DefaultCurrency        = "jpy"
	DefaultAppURL          = "http://localhost:3000"
	DefaultRateLimit       = 100
	DefaultReconcileWindow = 30
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnv("PORT", DefaultPort),
		Env:                    getEnv("ENV", DefaultEnv),
		LogLevel:               getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:            os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		StripeSecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PlatformFeePercent:     getEnvInt("PLATFORM_FEE_PERCENT", DefaultFeePercent),
		Currency:               getEnv("CURRENCY", DefaultCurrency),
		AppURL:                 getEnv("APP_URL", DefaultAppURL),
		ReconcileWindowMinutes: getEnvInt("RECONCILE_WINDOW_MINUTES", DefaultReconcileWindow),
		RateLimitRPS:           getEnvInt("RATE_LIMIT_RPS", DefaultRateLimit),
		AllowedOrigins:         getEnv("ALLOWED_ORIGINS", "*"),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		return fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100, got %d", c.PlatformFeePercent)
	}

	if c.AppURL == "" {
		return fmt.Errorf("APP_URL is required")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
