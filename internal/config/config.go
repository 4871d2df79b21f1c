package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Search   SearchConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Routes   RoutesConfig
	Upload   UploadConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
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

// RedisConfig holds Redis connection values for the profile cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SearchConfig selects and configures the search backend.
type SearchConfig struct {
	// Driver is "memory" or "meilisearch".
	Driver string
	Host   string
	APIKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session and login parameters.
type AuthConfig struct {
	CookieSecret     string
	CookieTTLMinutes int
	// TelegramBotToken is the bot token whose SHA256 keys the login widget
	// HMAC check. Telegram login is disabled when empty.
	TelegramBotToken string
	// LoginFreshnessSeconds bounds how old a telegram auth_date may be.
	LoginFreshnessSeconds int
}

// RoutesConfig toggles endpoints that must never be public.
type RoutesConfig struct {
	// ExposeInternal enables the raw user command endpoints and fake login.
	ExposeInternal bool
}

// UploadConfig controls the two-phase upload handshake.
type UploadConfig struct {
	Dir           string
	URLTTLMinutes int
	MaxSizeBytes  int64
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
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
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Search: SearchConfig{
			Driver: getEnv("SEARCH_DRIVER", "memory"),
			Host:   getEnv("MEILISEARCH_HOST", "http://127.0.0.1:7700"),
			APIKey: os.Getenv("MEILISEARCH_API_KEY"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			CookieSecret:          getEnv("AUTH_COOKIE_SECRET", "dev-secret"),
			CookieTTLMinutes:      getEnvAsInt("AUTH_COOKIE_TTL_MINUTES", 7*24*60),
			TelegramBotToken:      os.Getenv("AUTH_TELEGRAM_BOT_TOKEN"),
			LoginFreshnessSeconds: getEnvAsInt("AUTH_LOGIN_FRESHNESS_SECONDS", 60),
		},
		Routes: RoutesConfig{
			ExposeInternal: getEnvAsBool("ROUTES_EXPOSE_INTERNAL", false),
		},
		Upload: UploadConfig{
			Dir:           getEnv("UPLOAD_DIR", "uploads"),
			URLTTLMinutes: getEnvAsInt("UPLOAD_URL_TTL_MINUTES", 15),
			MaxSizeBytes:  int64(getEnvAsInt("UPLOAD_MAX_SIZE_BYTES", 10<<20)),
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

// CookieTTL returns the session cookie lifetime.
func (a AuthConfig) CookieTTL() time.Duration {
	if a.CookieTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.CookieTTLMinutes) * time.Minute
}

// LoginFreshness returns the maximum accepted telegram auth_date age.
func (a AuthConfig) LoginFreshness() time.Duration {
	if a.LoginFreshnessSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.LoginFreshnessSeconds) * time.Second
}

// TelegramSecret derives the HMAC key from the bot token. The second return
// is false when telegram login is not configured.
func (a AuthConfig) TelegramSecret() ([32]byte, bool) {
	if a.TelegramBotToken == "" {
		return [32]byte{}, false
	}
	return sha256.Sum256([]byte(a.TelegramBotToken)), true
}

// BodyLimit returns the HTTP body size cap: the largest accepted blob plus
// headroom for multipart framing and the JSON endpoints. Without this the
// server's default body cap would reject blobs below MaxSizeBytes with a
// bare 413 before the error envelope middleware runs.
func (u UploadConfig) BodyLimit() int {
	return int(u.MaxSizeBytes) + 1<<20
}

// URLTTL returns the validity window for signed upload URLs.
func (u UploadConfig) URLTTL() time.Duration {
	if u.URLTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(u.URLTTLMinutes) * time.Minute
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
