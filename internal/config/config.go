// Package config provides configuration management for Keystone.
// It loads settings from environment variables with the KEYSTONE_ prefix
// and provides sensible defaults for all configuration options. An optional
// .env file is read first; variables already set in the process win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/scrypster/keystone/internal/engine"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration settings for the Keystone application.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	LiveData  LiveDataConfig
	Seeds     SeedsConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7373)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains corpus storage configuration.
type StorageConfig struct {
	Engine      string // sqlite, postgres or memory (default: sqlite)
	DataPath    string // Directory holding keystone.db (default: ./data)
	PostgresDSN string // Required when Engine is postgres
}

// SQLitePath returns the database file used by the sqlite engine.
func (s StorageConfig) SQLitePath() string {
	return strings.TrimRight(s.DataPath, "/") + "/keystone.db"
}

// RetrievalConfig tunes matching and learning.
type RetrievalConfig struct {
	QALimit            int     // qa candidates per query (default: 20)
	VariationLimit     int     // variation candidates per query (default: 10)
	LearnThreshold     float64 // minimum confidence to record an interaction (default: 0.7)
	LearnedImportance  float64 // importance of learned qa records (default: 0.7)
	FallbackFloor      float64 // minimum score for the training fallback (default: 0.3)
	DedupeLearned      bool    // skip learning when a paraphrase already exists (default: true)
	TermHints          bool    // pass query keywords to the store as ranking hints (default: true)
	ExtractPreferences bool    // record budget/location/property-type preferences (default: true)
}

// LiveDataConfig selects and tunes the live data provider.
type LiveDataConfig struct {
	Source        string        // none, static or http (default: none)
	SnapshotPath  string        // YAML snapshot for the static source
	BaseURL       string        // Data service URL for the http source
	Timeout       time.Duration // Per-request timeout (default: 3s)
	RatePerSecond float64       // Outgoing request rate (default: 5)
	Burst         int           // Rate limiter burst (default: 10)
	CacheBackend  string        // none, memory or redis (default: memory)
	CacheTTL      time.Duration // Cached facts lifetime (default: 15m)
	RedisAddr     string        // Redis address for the redis cache
	RedisPassword string
	RedisDB       int
}

// SeedsConfig locates the seed corpus.
type SeedsConfig struct {
	Path  string // File or directory of YAML seeds (default: empty, no seeding)
	Watch bool   // Reload seeds when files change (default: false)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // development or production (default: development)
	APIToken     string // Bearer token required in production
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string // trace, debug, info, warn, error (default: info)
	Format string // json or console (default: json)
}

// LoadConfig reads the given .env files (".env" when none are named; missing
// files are ignored), then builds the configuration from the environment and
// validates it.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("config: failed to load %s: %w", f, err)
		}
	}

	cfg := buildBaseConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("KEYSTONE_PORT", 7373),
			Host: getEnv("KEYSTONE_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			Engine:      getEnv("KEYSTONE_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("KEYSTONE_DATA_PATH", "./data"),
			PostgresDSN: getEnv("KEYSTONE_POSTGRES_DSN", ""),
		},
		Retrieval: RetrievalConfig{
			QALimit:            getEnvInt("KEYSTONE_QA_LIMIT", 20),
			VariationLimit:     getEnvInt("KEYSTONE_VARIATION_LIMIT", 10),
			LearnThreshold:     getEnvFloat("KEYSTONE_LEARN_THRESHOLD", 0.7),
			LearnedImportance:  getEnvFloat("KEYSTONE_LEARNED_IMPORTANCE", 0.7),
			FallbackFloor:      getEnvFloat("KEYSTONE_FALLBACK_FLOOR", 0.3),
			DedupeLearned:      getEnvBool("KEYSTONE_DEDUPE_LEARNED", true),
			TermHints:          getEnvBool("KEYSTONE_TERM_HINTS", true),
			ExtractPreferences: getEnvBool("KEYSTONE_EXTRACT_PREFERENCES", true),
		},
		LiveData: LiveDataConfig{
			Source:        getEnv("KEYSTONE_LIVEDATA_SOURCE", "none"),
			SnapshotPath:  getEnv("KEYSTONE_LIVEDATA_SNAPSHOT", ""),
			BaseURL:       getEnv("KEYSTONE_LIVEDATA_URL", ""),
			Timeout:       getEnvDuration("KEYSTONE_LIVEDATA_TIMEOUT", 3*time.Second),
			RatePerSecond: getEnvFloat("KEYSTONE_LIVEDATA_RATE", 5),
			Burst:         getEnvInt("KEYSTONE_LIVEDATA_BURST", 10),
			CacheBackend:  getEnv("KEYSTONE_LIVEDATA_CACHE", "memory"),
			CacheTTL:      getEnvDuration("KEYSTONE_LIVEDATA_CACHE_TTL", 15*time.Minute),
			RedisAddr:     getEnv("KEYSTONE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("KEYSTONE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("KEYSTONE_REDIS_DB", 0),
		},
		Seeds: SeedsConfig{
			Path:  getEnv("KEYSTONE_SEEDS_PATH", ""),
			Watch: getEnvBool("KEYSTONE_SEEDS_WATCH", false),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("KEYSTONE_SECURITY_MODE", "development"),
			APIToken:     getEnv("KEYSTONE_API_TOKEN", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("KEYSTONE_LOG_LEVEL", "info"),
			Format: getEnv("KEYSTONE_LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects unknown engines and out-of-range thresholds.
func (c *Config) Validate() error {
	var problems []string
	bad := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		bad("port %d out of range", c.Server.Port)
	}

	switch c.Storage.Engine {
	case "sqlite", "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			bad("KEYSTONE_POSTGRES_DSN is required for the postgres engine")
		}
	default:
		bad("unknown storage engine %q", c.Storage.Engine)
	}

	switch c.LiveData.Source {
	case "none":
	case "static":
		if c.LiveData.SnapshotPath == "" {
			bad("KEYSTONE_LIVEDATA_SNAPSHOT is required for the static source")
		}
	case "http":
		if c.LiveData.BaseURL == "" {
			bad("KEYSTONE_LIVEDATA_URL is required for the http source")
		}
	default:
		bad("unknown live data source %q", c.LiveData.Source)
	}

	switch c.LiveData.CacheBackend {
	case "none", "memory", "redis":
	default:
		bad("unknown live data cache %q", c.LiveData.CacheBackend)
	}

	switch c.Security.SecurityMode {
	case "development":
	case "production":
		if c.Security.APIToken == "" {
			bad("KEYSTONE_API_TOKEN is required in production mode")
		}
	default:
		bad("unknown security mode %q", c.Security.SecurityMode)
	}

	engineCfg := c.EngineConfig()
	if err := engineCfg.Validate(); err != nil {
		bad("%v", err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// EngineConfig maps the retrieval settings onto engine.Config.
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.QALimit = c.Retrieval.QALimit
	cfg.VariationLimit = c.Retrieval.VariationLimit
	cfg.LearnThreshold = c.Retrieval.LearnThreshold
	cfg.LearnedImportance = c.Retrieval.LearnedImportance
	cfg.FallbackFloor = c.Retrieval.FallbackFloor
	cfg.DedupeLearned = c.Retrieval.DedupeLearned
	cfg.TermHints = c.Retrieval.TermHints
	cfg.ExtractPreferences = c.Retrieval.ExtractPreferences
	return cfg
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
