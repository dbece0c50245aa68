// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mpc-plus/internal/extraction"
	"mpc-plus/internal/observability/logging"
)

// LogConfig selects logger output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExtractionConfig tunes the metric extractor.
type ExtractionConfig struct {
	MissingNode string            `yaml:"missing_node"`
	Strategies  map[string]string `yaml:"strategies"`
}

// RedisConfig points the watcher at a shared dedup store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// WatchConfig controls the run folder watcher. No paths disables it.
type WatchConfig struct {
	Paths        []string      `yaml:"paths"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	ScanExisting bool          `yaml:"scan_existing"`
	Redis        RedisConfig   `yaml:"redis"`
}

// RateLimitConfig configures the HTTP token bucket. Zero rps disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr       string            `yaml:"http_addr"`
	DatabaseURL    string            `yaml:"database_url"`
	JWTSecret      string            `yaml:"jwt_secret"`
	IngestSecret   string            `yaml:"ingest_secret"`
	IngestMaxSkew  time.Duration     `yaml:"ingest_max_skew"`
	Log            LogConfig         `yaml:"log"`
	ThresholdsFile string            `yaml:"thresholds_file"`
	SessionWindow  time.Duration     `yaml:"session_window"`
	Extraction     ExtractionConfig  `yaml:"extraction"`
	Watch          WatchConfig       `yaml:"watch"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
	Machines       map[string]string `yaml:"machines"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:      ":8080",
		IngestMaxSkew: 5 * time.Minute,
		Log:           LogConfig{Level: "info", Format: "json"},
		SessionWindow: 2 * time.Minute,
		Extraction:    ExtractionConfig{MissingNode: string(extraction.MissingNodeFatal)},
		Watch: WatchConfig{
			SettleDelay: 2 * time.Second,
			Redis:       RedisConfig{KeyPrefix: "mpc:processed:", TTL: 30 * 24 * time.Hour},
		},
		RateLimit: RateLimitConfig{RPS: 200, Burst: 500},
	}
}

// Load reads MPC_CONFIG (if set) over the defaults, applies environment
// overrides and validates the result.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("MPC_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.IngestSecret = getenvDefault("INGEST_HMAC_SECRET", cfg.IngestSecret)
	cfg.IngestMaxSkew = getenvDuration("INGEST_MAX_SKEW", cfg.IngestMaxSkew)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.ThresholdsFile = getenvDefault("THRESHOLDS_FILE", cfg.ThresholdsFile)
	cfg.SessionWindow = getenvDuration("SESSION_WINDOW", cfg.SessionWindow)
	cfg.Extraction.MissingNode = getenvDefault("EXTRACTION_MISSING_NODE", cfg.Extraction.MissingNode)
	if paths := splitCSV(os.Getenv("WATCH_PATHS")); len(paths) > 0 {
		cfg.Watch.Paths = paths
	}
	cfg.Watch.SettleDelay = getenvDuration("WATCH_SETTLE_DELAY", cfg.Watch.SettleDelay)
	cfg.Watch.ScanExisting = getenvBool("WATCH_SCAN_EXISTING", cfg.Watch.ScanExisting)
	cfg.Watch.Redis.Addr = getenvDefault("REDIS_ADDR", cfg.Watch.Redis.Addr)
	cfg.Watch.Redis.Password = getenvDefault("REDIS_PASSWORD", cfg.Watch.Redis.Password)
	cfg.RateLimit.RPS = getenvFloatDefault("RATE_LIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = getenvIntDefault("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
}

// Validate checks required settings and enumerations.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("config: http_addr is required")
	}
	if c.SessionWindow <= 0 {
		return errors.New("config: session_window must be positive")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.MissingNodePolicy(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Strategies(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// MissingNodePolicy returns the configured extraction policy.
func (c Config) MissingNodePolicy() (extraction.MissingNodePolicy, error) {
	return extraction.ParseMissingNodePolicy(c.Extraction.MissingNode)
}

// Strategies returns the output strategy per beam family.
func (c Config) Strategies() (extraction.StrategyMapping, error) {
	return extraction.StrategiesFromNames(c.Extraction.Strategies)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
