package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values for both the ledger server
// and the till.
type Config struct {
	Secret       string
	DatabaseDSN  string
	HTTPPort     string
	AuthRequired bool
	CatalogCSV   string

	RedisAddr      string
	SearchCacheTTL time.Duration

	BackendURL      string
	APIToken        string
	RequestTimeout  time.Duration
	CheckoutTimeout time.Duration
	SearchRate      float64
}

// Load reads configuration from environment variables with reasonable defaults.
// A .env file in the working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:billing.db?_pragma=busy_timeout(5000)"
	}

	backendURL := strings.TrimRight(os.Getenv("BACKEND_URL"), "/")
	if backendURL == "" {
		backendURL = "http://localhost:" + port
	}

	return Config{
		Secret:       secret,
		DatabaseDSN:  dsn,
		HTTPPort:     port,
		AuthRequired: boolEnv("AUTH_REQUIRED", false),
		CatalogCSV:   os.Getenv("CATALOG_CSV"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		SearchCacheTTL: durationEnv("SEARCH_CACHE_TTL", time.Minute),

		BackendURL:      backendURL,
		APIToken:        os.Getenv("API_TOKEN"),
		RequestTimeout:  durationEnv("REQUEST_TIMEOUT", 10*time.Second),
		CheckoutTimeout: durationEnv("CHECKOUT_TIMEOUT", 15*time.Second),
		SearchRate:      floatEnv("SEARCH_RATE", 10),
	}
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid %s value %q, defaulting to %s", key, raw, def)
		return def
	}
	return d
}

func floatEnv(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		log.Printf("invalid %s value %q, defaulting to %v", key, raw, def)
		return def
	}
	return f
}

func boolEnv(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %t", key, raw, def)
		return def
	}
	return b
}
