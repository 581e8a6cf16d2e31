package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Freshdesk FreshdeskConfig
	Tracker   TrackerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines agent token parameters.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// FreshdeskConfig points the service at the helpdesk account.
type FreshdeskConfig struct {
	Subdomain       string
	APIKey          string
	TimeoutSeconds  int
	ResourceOptions []string
}

// TrackerConfig tunes drafts, sessions and submission handling.
type TrackerConfig struct {
	DraftLimit               int
	DraftCleanupCron         string
	SessionTTLMinutes        int
	SessionSweepCron         string
	CompanyCacheTTLMinutes   int
	SubmissionDedupeSeconds  int
	CompanyLookupConcurrency int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tracker-central"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_JWT_ISSUER", "tracker-central"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 480),
		},
		Freshdesk: FreshdeskConfig{
			Subdomain:       SanitizeSubdomain(os.Getenv("FRESHDESK_SUBDOMAIN")),
			APIKey:          os.Getenv("FRESHDESK_API_KEY"),
			TimeoutSeconds:  getEnvAsInt("FRESHDESK_TIMEOUT_SECONDS", 15),
			ResourceOptions: getEnvAsList("FRESHDESK_RESOURCE_OPTIONS"),
		},
		Tracker: TrackerConfig{
			DraftLimit:               getEnvAsInt("DRAFT_LIMIT", 20),
			DraftCleanupCron:         getEnv("DRAFT_CLEANUP_CRON", "0 */15 * * * *"),
			SessionTTLMinutes:        getEnvAsInt("SESSION_TTL_MINUTES", 120),
			SessionSweepCron:         getEnv("SESSION_SWEEP_CRON", "0 * * * * *"),
			CompanyCacheTTLMinutes:   getEnvAsInt("COMPANY_CACHE_TTL_MINUTES", 60),
			SubmissionDedupeSeconds:  getEnvAsInt("SUBMISSION_DEDUPE_SECONDS", 30),
			CompanyLookupConcurrency: getEnvAsInt("COMPANY_LOOKUP_CONCURRENCY", 4),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Configured reports whether a helpdesk subdomain is available. Without one
// every tracker route answers with a configuration error.
func (f FreshdeskConfig) Configured() bool {
	return f.Subdomain != ""
}

// Timeout returns the per-call timeout for helpdesk requests.
func (f FreshdeskConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

func (t TrackerConfig) SessionTTL() time.Duration {
	return time.Duration(t.SessionTTLMinutes) * time.Minute
}

func (t TrackerConfig) CompanyCacheTTL() time.Duration {
	return time.Duration(t.CompanyCacheTTLMinutes) * time.Minute
}

func (t TrackerConfig) SubmissionDedupeWindow() time.Duration {
	return time.Duration(t.SubmissionDedupeSeconds) * time.Second
}

// SanitizeSubdomain accepts "acme", "acme.freshdesk.com" or a full URL and
// returns the bare account name.
func SanitizeSubdomain(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".freshdesk.com")
	return s
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
