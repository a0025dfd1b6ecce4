package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 5184000, c.Performance.TTLSeconds)
	assert.Equal(t, 252, c.Performance.LookbackDays)
	assert.Equal(t, 12, c.Performance.BacktestMonths)
	assert.Equal(t, 2*time.Hour, c.Cache.TTL())
	assert.Equal(t, []string{"http://localhost:3000"}, c.API.CORSOrigins)
	assert.False(t, c.AlpacaEnabled())
}

func TestLoadUncheckedOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
api:
  port: 8080
cache:
  backend: redis
  redis_addr: redis:6379
performance:
  backend: sqlite
  backtest_months: 24
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := LoadUnchecked(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.API.Port)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, "redis:6379", c.Cache.RedisAddr)
	assert.Equal(t, 7200, c.Cache.TTLSeconds, "unset keys keep defaults")
	assert.Equal(t, "sqlite", c.Performance.Backend)
	assert.Equal(t, 24, c.Performance.BacktestMonths)
	assert.Equal(t, 252, c.Performance.LookbackDays)
}

func TestLoadUncheckedEmptyPath(t *testing.T) {
	c, err := LoadUnchecked("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadUncheckedErrors(t *testing.T) {
	_, err := LoadUnchecked(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [1, 2"), 0o644))
	_, err = LoadUnchecked(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	c.ApplyEnv(envOf(map[string]string{
		"API_PORT":                    "9000",
		"CORS_ORIGINS":                "http://a.test, http://b.test,",
		"CACHE_ENABLED":               "off",
		"CACHE_BACKEND":               "redis",
		"CACHE_TABLE":                 "plans",
		"CACHE_TTL_SECONDS":           "60",
		"PERFORMANCE_ENABLED":         "Yes",
		"PERFORMANCE_TTL_SECONDS":     "not-a-number",
		"PERFORMANCE_BACKTEST_MONTHS": "6",
		"DATABASE_URL":                "postgres://x",
		"ALPACA_API_KEY":              "k",
		"ALPACA_API_SECRET":           "s",
		"LOG_LEVEL":                   "debug",
	}))

	assert.Equal(t, 9000, c.API.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.API.CORSOrigins)
	assert.False(t, c.Cache.Enabled)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, "plans", c.Cache.Prefix)
	assert.Equal(t, time.Minute, c.Cache.TTL())
	assert.True(t, c.Performance.Enabled)
	assert.Equal(t, 5184000, c.Performance.TTLSeconds, "bad integer keeps the default")
	assert.Equal(t, 6, c.Performance.BacktestMonths)
	assert.Equal(t, "postgres://x", c.Performance.DatabaseURL)
	assert.True(t, c.AlpacaEnabled())
	assert.Equal(t, "debug", c.Log.Level)
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in       string
		want, ok bool
	}{
		{"1", true, true},
		{"TRUE", true, true},
		{" on ", true, true},
		{"no", false, true},
		{"0", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		got, ok := parseBool(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis addr", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }, "cache.redis_addr"},
		{"perf backend", func(c *Config) { c.Performance.Backend = "mongo" }, "performance.backend"},
		{"postgres dsn", func(c *Config) { c.Performance.Backend = "postgres" }, "performance.database_url"},
		{"sqlite path", func(c *Config) { c.Performance.Backend = "sqlite"; c.Performance.SQLitePath = "" }, "performance.sqlite_path"},
		{"perf ttl", func(c *Config) { c.Performance.TTLSeconds = 0 }, "performance.ttl_seconds"},
		{"months", func(c *Config) { c.Performance.BacktestMonths = 0 }, "performance.backtest_months"},
		{"alpaca pair", func(c *Config) { c.Data.AlpacaAPIKey = "k" }, "alpaca"},
		{"disabled postgres needs no dsn", func(c *Config) {
			c.Performance.Backend = "postgres"
			c.Performance.Enabled = false
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}
