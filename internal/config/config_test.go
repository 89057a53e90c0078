package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "STRIPE_SECRET_KEY", "sk_test_123")
	setEnv(t, "STRIPE_WEBHOOK_SECRET", "whsec_123")
	setEnv(t, "PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DefaultFeePercent, cfg.PlatformFeePercent)
	assert.Equal(t, DefaultCurrency, cfg.Currency)
	assert.Equal(t, DefaultAppURL, cfg.AppURL)
}

func TestLoad_MissingStripeKey(t *testing.T) {
	setEnv(t, "STRIPE_SECRET_KEY", "")
	setEnv(t, "STRIPE_WEBHOOK_SECRET", "whsec_123")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY is required")
}

func TestLoad_FeePercentOverride(t *testing.T) {
	setEnv(t, "STRIPE_SECRET_KEY", "sk_test_123")
	setEnv(t, "STRIPE_WEBHOOK_SECRET", "whsec_123")
	setEnv(t, "PLATFORM_FEE_PERCENT", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.PlatformFeePercent)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid config",
			config: Config{
				StripeSecretKey:     "sk_test_123",
				StripeWebhookSecret: "whsec_123",
				PlatformFeePercent:  15,
				AppURL:              "https://example.com",
			},
			wantErr: "",
		},
		{
			name: "missing webhook secret",
			config: Config{
				StripeSecretKey:    "sk_test_123",
				PlatformFeePercent: 15,
				AppURL:             "https://example.com",
			},
			wantErr: "STRIPE_WEBHOOK_SECRET is required",
		},
		{
			name: "fee percent out of range",
			config: Config{
				StripeSecretKey:     "sk_test_123",
				StripeWebhookSecret: "whsec_123",
				PlatformFeePercent:  101,
				AppURL:              "https://example.com",
			},
			wantErr: "PLATFORM_FEE_PERCENT",
		},
		{
			name: "negative fee percent",
			config: Config{
				StripeSecretKey:     "sk_test_123",
				StripeWebhookSecret: "whsec_123",
				PlatformFeePercent:  -1,
				AppURL:              "https://example.com",
			},
			wantErr: "PLATFORM_FEE_PERCENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_EnvHelpers(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}
