package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig selects and tunes the relational store.
type DBConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            string
	User            string
	Pass            string
	Name            string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SyncConfig drives the headless mirror client.
type SyncConfig struct {
	ServerURL    string
	Debounce     time.Duration
	PollInterval time.Duration
	Timeout      time.Duration
}

type Config struct {
	Port             string
	Env              string
	LogLevel         string
	CORSOrigins      []string
	QuoteScope       string
	SnapshotCacheTTL time.Duration
	BootstrapFile    string

	DB    DBConfig
	Redis RedisConfig
	Sync  SyncConfig
}

// Load reads .env when present and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the environment only.
func FromEnv() *Config {
	cfg := &Config{
		Port:             envOrDefault("PORT", "8080"),
		Env:              envOrDefault("APP_ENV", "development"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		CORSOrigins:      parseList(os.Getenv("CORS_ORIGINS"), []string{"*"}),
		QuoteScope:       envOrDefault("QUOTE_CODE_SCOPE", "COT"),
		SnapshotCacheTTL: envDuration("SNAPSHOT_CACHE_TTL", 10*time.Minute),
		BootstrapFile:    strings.TrimSpace(os.Getenv("BOOTSTRAP_FILE")),
		DB: DBConfig{
			Driver:          strings.ToLower(envOrDefault("DB_DRIVER", "mysql")),
			URL:             firstNonEmpty(os.Getenv("MYSQL_URL"), os.Getenv("DATABASE_URL")),
			Host:            envOrDefault("DB_HOST", "127.0.0.1"),
			Port:            strings.TrimSpace(os.Getenv("DB_PORT")),
			User:            envOrDefault("DB_USER", "root"),
			Pass:            os.Getenv("DB_PASS"),
			Name:            envOrDefault("DB_NAME", "venue_db"),
			SQLitePath:      envOrDefault("SQLITE_PATH", "venue.db"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        envOrDefault("DB_LOG_LEVEL", "warn"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		Sync: SyncConfig{
			ServerURL:    envOrDefault("SYNC_SERVER_URL", "http://127.0.0.1:8080"),
			Debounce:     envDuration("SYNC_DEBOUNCE", 700*time.Millisecond),
			PollInterval: envDuration("SYNC_POLL_INTERVAL", 5*time.Second),
			Timeout:      envDuration("SYNC_TIMEOUT", 15*time.Second),
		},
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func envOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

// envDuration accepts Go durations ("750ms") or a bare number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseList(raw string, def []string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
