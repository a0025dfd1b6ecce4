package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML). Environment variables
// applied with ApplyEnv override file values.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Cache       CacheConfig       `yaml:"cache"`
	Performance PerformanceConfig `yaml:"performance"`
	Data        DataConfig        `yaml:"data"`
	Log         LogConfig         `yaml:"log"`
}

type APIConfig struct {
	Port        int      `yaml:"port"`
	Env         string   `yaml:"env"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Backend    string `yaml:"backend"` // "memory" or "redis"
	Prefix     string `yaml:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisPass  string `yaml:"redis_password"`
	RedisDB    int    `yaml:"redis_db"`
}

type PerformanceConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Backend        string `yaml:"backend"` // "memory", "postgres" or "sqlite"
	Table          string `yaml:"table"`
	TTLSeconds     int    `yaml:"ttl_seconds"`
	LookbackDays   int    `yaml:"lookback_days"`
	BacktestMonths int    `yaml:"backtest_months"`
	DatabaseURL    string `yaml:"database_url"`
	SQLitePath     string `yaml:"sqlite_path"`
}

type DataConfig struct {
	StooqURL         string `yaml:"stooq_url"`
	AlpacaAPIKey     string `yaml:"alpaca_api_key"`
	AlpacaAPISecret  string `yaml:"alpaca_api_secret"`
	AlpacaFeed       string `yaml:"alpaca_feed"`
	PriceFile        string `yaml:"price_file"`
	CatalogFile      string `yaml:"catalog_file"`
	FetchCacheTTLSec int    `yaml:"fetch_cache_ttl_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Port:        5000,
			Env:         "development",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Cache: CacheConfig{
			Enabled:    true,
			Backend:    "memory",
			Prefix:     "strategy_cache",
			TTLSeconds: 7200,
			RedisAddr:  "localhost:6379",
		},
		Performance: PerformanceConfig{
			Enabled:        true,
			Backend:        "memory",
			Table:          "performance_snapshots",
			TTLSeconds:     5184000,
			LookbackDays:   252,
			BacktestMonths: 12,
			SQLitePath:     "performance.db",
		},
		Data: DataConfig{
			StooqURL:         "https://stooq.com",
			AlpacaFeed:       "iex",
			FetchCacheTTLSec: 900,
		},
		Log: LogConfig{Level: "info"},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked overlays the YAML file at path onto Default without
// validating. An empty path returns the defaults.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables. Unparseable values
// keep the current setting.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, ok := parseBool(v); ok {
				*dst = b
			}
		}
	}

	num("API_PORT", &c.API.Port)
	str("API_ENV", &c.API.Env)
	if v, ok := lookup("CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.API.CORSOrigins = splitList(v)
	}

	flag("CACHE_ENABLED", &c.Cache.Enabled)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_TABLE", &c.Cache.Prefix)
	num("CACHE_TTL_SECONDS", &c.Cache.TTLSeconds)
	str("REDIS_ADDR", &c.Cache.RedisAddr)

	flag("PERFORMANCE_ENABLED", &c.Performance.Enabled)
	str("PERFORMANCE_BACKEND", &c.Performance.Backend)
	str("PERFORMANCE_TABLE", &c.Performance.Table)
	num("PERFORMANCE_TTL_SECONDS", &c.Performance.TTLSeconds)
	num("PERFORMANCE_LOOKBACK_DAYS", &c.Performance.LookbackDays)
	num("PERFORMANCE_BACKTEST_MONTHS", &c.Performance.BacktestMonths)
	str("DATABASE_URL", &c.Performance.DatabaseURL)
	str("SQLITE_PATH", &c.Performance.SQLitePath)

	str("ALPACA_API_KEY", &c.Data.AlpacaAPIKey)
	str("ALPACA_API_SECRET", &c.Data.AlpacaAPISecret)
	str("PRICE_FILE", &c.Data.PriceFile)
	str("LOG_LEVEL", &c.Log.Level)
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Enabled && c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must be >= 0")
	}
	switch c.Performance.Backend {
	case "memory":
	case "postgres":
		if c.Performance.Enabled && c.Performance.DatabaseURL == "" {
			return errors.New("performance.database_url is required for the postgres backend")
		}
	case "sqlite":
		if c.Performance.Enabled && c.Performance.SQLitePath == "" {
			return errors.New("performance.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("performance.backend must be memory, postgres or sqlite, got %q", c.Performance.Backend)
	}
	if c.Performance.TTLSeconds <= 0 {
		return errors.New("performance.ttl_seconds must be > 0")
	}
	if c.Performance.LookbackDays < 0 {
		return errors.New("performance.lookback_days must be >= 0")
	}
	if c.Performance.BacktestMonths < 1 {
		return errors.New("performance.backtest_months must be >= 1")
	}
	if (c.Data.AlpacaAPIKey == "") != (c.Data.AlpacaAPISecret == "") {
		return errors.New("data.alpaca_api_key and data.alpaca_api_secret must be set together")
	}
	return nil
}

// AlpacaEnabled reports whether both Alpaca credentials are present.
func (c *Config) AlpacaEnabled() bool {
	return c.Data.AlpacaAPIKey != "" && c.Data.AlpacaAPISecret != ""
}

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

func (c PerformanceConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

func (c DataConfig) FetchCacheTTL() time.Duration {
	return time.Duration(c.FetchCacheTTLSec) * time.Second
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
