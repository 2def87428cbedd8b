package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/utils/accounting"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	JWTIssuer     string

	// Resource bounds
	RequestTimeout     time.Duration
	DBStatementTimeout time.Duration
	DBLockTimeout      time.Duration
	DBMaxConns         int32

	// Ledger policy
	TuitionTermSplit      []decimal.Decimal
	TransportTermSplit    []decimal.Decimal
	ConflictRetryAttempts int
	ConflictRetryBackoff  time.Duration
	BulkInitConcurrency   int

	// Optional infrastructure
	RedisURL           string
	DashboardCacheTTL  time.Duration
	RateLimit          string // ulule formatted rate, e.g. "300-M"
	PosthogAPIKey      string
	PosthogEndpoint    string
	CORSAllowedOrigins []string
	MigrationsPath     string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "school-console-auth")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("DB_STATEMENT_TIMEOUT", "5s")
	v.SetDefault("DB_LOCK_TIMEOUT", "2s")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("TUITION_TERM_SPLIT", "40,30,30")
	v.SetDefault("TRANSPORT_TERM_SPLIT", "50,50")
	v.SetDefault("CONFLICT_RETRY_ATTEMPTS", 5)
	v.SetDefault("CONFLICT_RETRY_BACKOFF", "25ms")
	v.SetDefault("BULK_INIT_CONCURRENCY", 8)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DASHBOARD_CACHE_TTL", "30s")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("POSTHOG_API_KEY", "")
	v.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:           v.GetString("PGSQL_URL"),
		Port:                  v.GetString("PORT"),
		IsProduction:          v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:         v.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		JWTIssuer:             v.GetString("JWT_ISSUER"),
		DBMaxConns:            v.GetInt32("DB_MAX_CONNS"),
		ConflictRetryAttempts: v.GetInt("CONFLICT_RETRY_ATTEMPTS"),
		BulkInitConcurrency:   v.GetInt("BULK_INIT_CONCURRENCY"),
		RedisURL:              v.GetString("REDIS_URL"),
		RateLimit:             v.GetString("RATE_LIMIT"),
		PosthogAPIKey:         v.GetString("POSTHOG_API_KEY"),
		PosthogEndpoint:       v.GetString("POSTHOG_ENDPOINT"),
		MigrationsPath:        v.GetString("MIGRATIONS_PATH"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	var err error
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"DB_STATEMENT_TIMEOUT", &cfg.DBStatementTimeout},
		{"DB_LOCK_TIMEOUT", &cfg.DBLockTimeout},
		{"CONFLICT_RETRY_BACKOFF", &cfg.ConflictRetryBackoff},
		{"DASHBOARD_CACHE_TTL", &cfg.DashboardCacheTTL},
	}
	for _, d := range durations {
		raw := v.GetString(d.key)
		if *d.target, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid value for %s (%q): %w", d.key, raw, err)
		}
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if cfg.TuitionTermSplit, err = ParseTermSplit(v.GetString("TUITION_TERM_SPLIT")); err != nil {
		return nil, fmt.Errorf("invalid TUITION_TERM_SPLIT: %w", err)
	}
	if cfg.TransportTermSplit, err = ParseTermSplit(v.GetString("TRANSPORT_TERM_SPLIT")); err != nil {
		return nil, fmt.Errorf("invalid TRANSPORT_TERM_SPLIT: %w", err)
	}

	if cfg.ConflictRetryAttempts < 1 {
		log.Printf("Warning: CONFLICT_RETRY_ATTEMPTS (%d) must be at least 1. Defaulting to 1.\n", cfg.ConflictRetryAttempts)
		cfg.ConflictRetryAttempts = 1
	}
	if cfg.BulkInitConcurrency < 1 {
		log.Printf("Warning: BULK_INIT_CONCURRENCY (%d) must be at least 1. Defaulting to 1.\n", cfg.BulkInitConcurrency)
		cfg.BulkInitConcurrency = 1
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

// ParseTermSplit parses a comma separated list of term percentages, e.g. "40,30,30".
func ParseTermSplit(raw string) ([]decimal.Decimal, error) {
	var percents []decimal.Decimal
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("term percentage %q is not a number: %w", part, err)
		}
		percents = append(percents, p)
	}
	if err := accounting.ValidatePercentages(percents); err != nil {
		return nil, err
	}
	return percents, nil
}
