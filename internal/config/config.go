package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	RateLimit          string

	CategoryCacheTTL time.Duration
	CartLockTTL      time.Duration
	LockRetryBackoff time.Duration
	IdempotencyTTL   time.Duration

	CatalogBreakerMinRequests int
	CatalogBreakerFailureRate float64
	CatalogBreakerOpenFor     time.Duration

	LedgerQueue       string
	LedgerMaxRetry    int
	WorkerConcurrency int
	MigrateOnStart    bool

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingRatio     float64
}

// Load reads configuration from the process environment, after merging an
// optional .env file into it.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(env.Provider("", ".", func(s string) string { return s }))
}

// LoadForTests builds a Config from the given values only. Empty values count
// as unset.
func LoadForTests(values map[string]string) (*Config, error) {
	return load(mapProvider(values))
}

func load(p koanf.Provider) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(p, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	r := &reader{k: k}

	cfg := &Config{
		AppEnv:             r.str("APP_ENV", "development"),
		Port:               r.str("PORT", "8080"),
		DatabaseURL:        r.str("DATABASE_URL", ""),
		RedisURL:           r.str("REDIS_URL", ""),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS"),
		RateLimit:          r.str("RATE_LIMIT", "600-M"),

		CategoryCacheTTL: r.duration("CATEGORY_CACHE_TTL", 10*time.Minute),
		CartLockTTL:      r.duration("CART_LOCK_TTL", 5*time.Second),
		LockRetryBackoff: r.duration("LOCK_RETRY_BACKOFF", 50*time.Millisecond),
		IdempotencyTTL:   r.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		CatalogBreakerMinRequests: r.integer("CATALOG_BREAKER_MIN_REQUESTS", 20),
		CatalogBreakerFailureRate: r.fraction("CATALOG_BREAKER_FAILURE_RATE", 0.5),
		CatalogBreakerOpenFor:     r.duration("CATALOG_BREAKER_OPEN_FOR", 30*time.Second),

		LedgerQueue:       r.str("LEDGER_QUEUE", "ledger"),
		LedgerMaxRetry:    r.integer("LEDGER_MAX_RETRY", 10),
		WorkerConcurrency: r.integer("WORKER_CONCURRENCY", 10),
		MigrateOnStart:    r.flag("MIGRATE_ON_START", true),

		LogFormat:        r.str("OBS_LOG_FORMAT", "json"),
		LogLevel:         r.str("OBS_LOG_LEVEL", "info"),
		MetricsNamespace: r.str("OBS_METRICS_NAMESPACE", "promo"),
		TracingEnabled:   r.flag("OBS_ENABLE_TRACING", false),
		OTLPEndpoint:     r.str("OBS_OTLP_ENDPOINT", ""),
		TracingRatio:     r.fraction("OBS_TRACING_SAMPLING_RATIO", 1),
	}

	if cfg.DatabaseURL == "" {
		r.fail("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		r.fail("REDIS_URL is required")
	}
	if cfg.CatalogBreakerFailureRate <= 0 || cfg.CatalogBreakerFailureRate > 1 {
		r.fail(fmt.Sprintf("CATALOG_BREAKER_FAILURE_RATE must be in (0,1], got %v", cfg.CatalogBreakerFailureRate))
	}
	if cfg.WorkerConcurrency <= 0 {
		r.fail("WORKER_CONCURRENCY must be positive")
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// reader reads trimmed keys, falling back to defaults for unset keys and
// collecting an error for every malformed one.
type reader struct {
	k    *koanf.Koanf
	errs []error
}

func (r *reader) raw(key string) string {
	return strings.TrimSpace(r.k.String(key))
}

func (r *reader) fail(msg string) {
	r.errs = append(r.errs, errors.New(msg))
}

func (r *reader) str(key, fallback string) string {
	if v := r.raw(key); v != "" {
		return v
	}
	return fallback
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.raw(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	return parse(r, key, fallback, time.ParseDuration)
}

func (r *reader) integer(key string, fallback int) int {
	return parse(r, key, fallback, strconv.Atoi)
}

func (r *reader) fraction(key string, fallback float64) float64 {
	return parse(r, key, fallback, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func (r *reader) flag(key string, fallback bool) bool {
	return parse(r, key, fallback, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "1", "t", "true", "yes", "on":
			return true, nil
		case "0", "f", "false", "no", "off":
			return false, nil
		}
		return false, errors.New("not a boolean")
	})
}

func parse[T any](r *reader, key string, fallback T, fn func(string) (T, error)) T {
	v := r.raw(key)
	if v == "" {
		return fallback
	}
	out, err := fn(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid value %q: %w", key, v, err))
		return fallback
	}
	return out
}

// mapProvider feeds fixed values to koanf.
type mapProvider map[string]string

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for key, value := range m {
		if value != "" {
			out[key] = value
		}
	}
	return out, nil
}
