package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "tradein-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "https://api.accu-trade.com", cfg.Provider.BaseURL)
		assert.Equal(t, "ACCU_TRADE_API_KEY", cfg.Provider.APIKeyEnv)
		assert.Equal(t, 30, cfg.Provider.TimeoutSeconds)
		assert.Equal(t, int64(10<<20), cfg.Provider.MaxResponseBytes)
		assert.Equal(t, PolicyLinear, cfg.Valuation.MileagePolicy)
		assert.Equal(t, 100.0, cfg.Valuation.RatePerThousand)
		assert.Equal(t, 750.0, cfg.Valuation.FlatAmount)
		assert.Equal(t, int64(100000), cfg.Valuation.DefaultAverageMileage)
		assert.Equal(t, 0.13, cfg.Report.TaxRate)
		assert.Equal(t, 0.9, cfg.Report.RangeFloor)
		assert.Equal(t, "CAD", cfg.Report.Currency)
		assert.Equal(t, "en-CA", cfg.Report.Locale)
		assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
		assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, "tradein-backend", cfg.Telemetry.ServiceName)
		assert.Equal(t, 60*time.Second, cfg.Telemetry.MetricsInterval)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.False(t, cfg.Profiler.Enabled)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		t.Setenv("TRADEIN_APP_PORT", "9090")
		t.Setenv("TRADEIN_VALUATION_MILEAGE_POLICY", "flat")
		t.Setenv("TRADEIN_VALUATION_FLAT_AMOUNT", "500")
		t.Setenv("TRADEIN_SESSION_STORE", "redis")
		t.Setenv("TRADEIN_SESSION_TTL", "45m")
		t.Setenv("TRADEIN_REDIS_HOST", "cache.internal")
		t.Setenv("TRADEIN_PROVIDER_API_KEY_ENV", "MY_KEY")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, PolicyFlat, cfg.Valuation.MileagePolicy)
		assert.Equal(t, 500.0, cfg.Valuation.FlatAmount)
		assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
		assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
		assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr())
		assert.Equal(t, "MY_KEY", cfg.Provider.APIKeyEnv)
	})

	t.Run("rejects unknown mileage policy", func(t *testing.T) {
		t.Setenv("TRADEIN_VALUATION_MILEAGE_POLICY", "stepped")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "valuation.mileage_policy")
	})

	t.Run("rejects unknown session store", func(t *testing.T) {
		t.Setenv("TRADEIN_SESSION_STORE", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session.store")
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
name = "tradein-test"

[report]
tax_rate = 0.05
locale = "fr-CA"

[session]
ttl = "2h"

[telemetry]
metrics_interval = "15s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "tradein-test", cfg.App.Name)
	assert.Equal(t, "tradein-test", cfg.Telemetry.ServiceName)
	assert.Equal(t, 0.05, cfg.Report.TaxRate)
	assert.Equal(t, "fr-CA", cfg.Report.Locale)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.MetricsInterval)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "tax rate above one",
			mutate:  func(c *Config) { c.Report.TaxRate = 1.5 },
			wantErr: "report.tax_rate",
		},
		{
			name:    "range floor above one",
			mutate:  func(c *Config) { c.Report.RangeFloor = 1.2 },
			wantErr: "report.range_floor",
		},
		{
			name:    "session ttl too short",
			mutate:  func(c *Config) { c.Session.TTL = 10 * time.Second },
			wantErr: "session.ttl",
		},
		{
			name:    "relative provider url",
			mutate:  func(c *Config) { c.Provider.BaseURL = "api.accu-trade.com" },
			wantErr: "provider.base_url",
		},
		{
			name:    "sampling ratio out of range",
			mutate:  func(c *Config) { c.Telemetry.SamplingRatio = 2 },
			wantErr: "telemetry.sampling_ratio",
		},
		{
			name: "production requires https provider",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Provider.BaseURL = "http://api.accu-trade.com"
			},
			wantErr: "https",
		},
		{
			name: "production rejects wildcard CORS",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.HTTP.CORSAllowOrigins = []string{"*"}
			},
			wantErr: "cors_allow_origins",
		},
		{
			name: "production rejects insecure telemetry",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Telemetry.Enabled = true
				c.Telemetry.Insecure = true
			},
			wantErr: "telemetry.insecure",
		},
		{
			name: "development allows insecure telemetry",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Insecure = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
