package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SECRET", "HTTP_PORT", "DATABASE_DSN", "BACKEND_URL", "REQUEST_TIMEOUT",
		"CHECKOUT_TIMEOUT", "SEARCH_RATE", "AUTH_REQUIRED", "REDIS_ADDR", "SEARCH_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "dev_secret", cfg.Secret)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, float64(10), cfg.SearchRate)
	assert.False(t, cfg.AuthRequired)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	t.Setenv("CHECKOUT_TIMEOUT", "soon")
	t.Setenv("SEARCH_RATE", "-1")
	t.Setenv("AUTH_REQUIRED", "maybe")
	t.Setenv("BACKEND_URL", "http://ledger:9000/")

	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 15*time.Second, cfg.CheckoutTimeout)
	assert.Equal(t, float64(10), cfg.SearchRate)
	assert.False(t, cfg.AuthRequired)
	assert.Equal(t, "http://ledger:9000", cfg.BackendURL)
}
