package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultBaseURL = "http://127.0.0.1:8000"

// Session backends understood by session.Open.
const (
	SessionBackendMemory   = "memory"
	SessionBackendFile     = "file"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the console and the stub backend.
type Config struct {
	API      APIConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Stub     StubConfig
}

// APIConfig controls how the client reaches the backend.
type APIConfig struct {
	BaseURL            string
	TimeoutSeconds     int
	MaxAttempts        int
	InitialDelayMillis int
	MaxDelayMillis     int
	BackoffMultiplier  float64
}

// SessionConfig selects where the session token and user record live.
type SessionConfig struct {
	Backend   string
	Dir       string
	Namespace string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
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
	Level    string
	Encoding string
}

// StubConfig drives the development stub backend.
type StubConfig struct {
	Host                  string
	Port                  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminEmail            string
	AdminPassword         string
	FounderEmail          string
	FounderPassword       string
	ChatPerMinute         int
	RequestTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	multiplier, err := getEnvAsFloat("API_BACKOFF_MULTIPLIER", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid API_BACKOFF_MULTIPLIER: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:            resolveBaseURL(),
			TimeoutSeconds:     getEnvAsInt("API_TIMEOUT_SECONDS", 30),
			MaxAttempts:        getEnvAsInt("API_MAX_ATTEMPTS", 3),
			InitialDelayMillis: getEnvAsInt("API_INITIAL_DELAY_MS", 1000),
			MaxDelayMillis:     getEnvAsInt("API_MAX_DELAY_MS", 5000),
			BackoffMultiplier:  multiplier,
		},
		Session: SessionConfig{
			Backend:   strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendFile)),
			Dir:       getEnv("SESSION_DIR", defaultSessionDir()),
			Namespace: getEnv("SESSION_NAMESPACE", "tr4ction"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Stub: StubConfig{
			Host:                  getEnv("STUB_HOST", "127.0.0.1"),
			Port:                  getEnv("STUB_PORT", "8000"),
			JWTSecret:             getEnv("STUB_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("STUB_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("STUB_BCRYPT_COST", 10),
			AdminEmail:            getEnv("STUB_ADMIN_EMAIL", "admin@tr4ction.com"),
			AdminPassword:         getEnv("STUB_ADMIN_PASSWORD", "admin123"),
			FounderEmail:          getEnv("STUB_FOUNDER_EMAIL", "founder@startup.com"),
			FounderPassword:       getEnv("STUB_FOUNDER_PASSWORD", "founder123"),
			ChatPerMinute:         getEnvAsInt("STUB_CHAT_PER_MINUTE", 20),
			RequestTimeoutSeconds: getEnvAsInt("STUB_REQUEST_TIMEOUT_SECONDS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the client cannot work around at runtime.
func (c *Config) Validate() error {
	var errs []error

	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid API base url %q: %w", c.API.BaseURL, err))
	}
	if c.API.MaxAttempts < 1 {
		errs = append(errs, errors.New("API_MAX_ATTEMPTS must be >= 1"))
	}
	if c.API.InitialDelayMillis <= 0 {
		errs = append(errs, errors.New("API_INITIAL_DELAY_MS must be > 0"))
	}
	if c.API.MaxDelayMillis < c.API.InitialDelayMillis {
		errs = append(errs, errors.New("API_MAX_DELAY_MS must be >= API_INITIAL_DELAY_MS"))
	}
	if c.API.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("API_BACKOFF_MULTIPLIER must be >= 1"))
	}

	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendFile, SessionBackendRedis:
	case SessionBackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend))
	}

	return errors.Join(errs...)
}

// Timeout returns the per-attempt timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// InitialDelay returns the first backoff delay.
func (a APIConfig) InitialDelay() time.Duration {
	return time.Duration(a.InitialDelayMillis) * time.Millisecond
}

// MaxDelay returns the backoff cap.
func (a APIConfig) MaxDelay() time.Duration {
	return time.Duration(a.MaxDelayMillis) * time.Millisecond
}

// Addr returns the stub backend bind address.
func (s StubConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// resolveBaseURL honours the variable names the web front-end used.
func resolveBaseURL() string {
	for _, key := range []string{"TR4CTION_API_URL", "NEXT_PUBLIC_API_URL", "NEXT_PUBLIC_API_BASE_URL"} {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return strings.TrimRight(val, "/")
		}
	}
	return defaultBaseURL
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".tr4ction"
	}
	return filepath.Join(home, ".tr4ction")
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

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(val, 64)
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
