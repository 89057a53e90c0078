package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLimiterAllow(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 60,
		BurstSize:         5,
		CleanupInterval:   time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	key := "test-ip"

	// Should allow burst size requests immediately
	for i := 0; i < 5; i++ {
		if !limiter.Allow(key) {
			t.Errorf("Request %d should be allowed (within burst)", i)
		}
	}

	// Next request should be denied
	if limiter.Allow(key) {
		t.Error("Request after burst should be denied")
	}

	// Wait for token replenishment (1 second = 1 token at 60/min)
	time.Sleep(time.Second)

	// Should allow again
	if !limiter.Allow(key) {
		t.Error("Request after waiting should be allowed")
	}
}

func TestLimiterMultipleClients(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 60,
		BurstSize:         3,
		CleanupInterval:   time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	// Client A uses up their tokens
	for i := 0; i < 3; i++ {
		limiter.Allow("client-a")
	}

	// Client A is now rate limited
	if limiter.Allow("client-a") {
		t.Error("Client A should be rate limited")
	}

	// Client B should still have tokens
	if !limiter.Allow("client-b") {
		t.Error("Client B should not be rate limited")
	}
}

func TestLimiterTokenReplenishment(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 600, // 10 per second
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	key := "test"

	if !limiter.Allow(key) {
		t.Error("First request should be allowed")
	}

	if limiter.Allow(key) {
		t.Error("Second immediate request should be denied")
	}

	// Wait 100ms (should get 1 token at 10/sec)
	time.Sleep(110 * time.Millisecond)

	if !limiter.Allow(key) {
		t.Error("Request after 100ms should be allowed")
	}
}

func TestMiddlewareExemptsWebhookAndHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := New(Config{
		RequestsPerMinute: 60,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	r := gin.New()
	r.Use(limiter.Middleware())
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/v1/webhook", handler)
	r.GET("/health/ready", handler)
	r.GET("/v1/requests", handler)

	get := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// A redelivery burst must never be throttled
	for i := 0; i < 10; i++ {
		if code := get(http.MethodPost, "/v1/webhook"); code != http.StatusOK {
			t.Fatalf("webhook delivery %d got %d, want 200", i, code)
		}
	}
	for i := 0; i < 10; i++ {
		if code := get(http.MethodGet, "/health/ready"); code != http.StatusOK {
			t.Fatalf("health probe %d got %d, want 200", i, code)
		}
	}

	// Ordinary API traffic still gets limited (burst of 1)
	if code := get(http.MethodGet, "/v1/requests"); code != http.StatusOK {
		t.Fatalf("first API request got %d, want 200", code)
	}
	if code := get(http.MethodGet, "/v1/requests"); code != http.StatusTooManyRequests {
		t.Fatalf("second API request got %d, want 429", code)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RequestsPerMinute != 60 {
		t.Errorf("Expected 60 requests/min, got %d", cfg.RequestsPerMinute)
	}
	if cfg.BurstSize != 10 {
		t.Errorf("Expected burst size 10, got %d", cfg.BurstSize)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("Expected 1 minute cleanup interval, got %v", cfg.CleanupInterval)
	}
}
