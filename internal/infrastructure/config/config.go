package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Provider  ProviderConfig
	Valuation ValuationConfig
	Report    ReportConfig
	Session   SessionConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Profiler  ProfilerConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// ProviderConfig holds valuation provider configuration.
// The API key itself is never loaded here: it is read at request time from
// the environment variable named by APIKeyEnv.
type ProviderConfig struct {
	BaseURL          string
	APIKeyEnv        string
	TimeoutSeconds   int
	MaxResponseBytes int64
	SlowCallThresh   time.Duration
}

// ValuationConfig selects and parameterizes the mileage adjustment policy
type ValuationConfig struct {
	MileagePolicy         string  // linear, flat
	RatePerThousand       float64 // linear: currency per 1000 miles of difference
	FlatAmount            float64 // flat: fixed adjustment magnitude
	DefaultAverageMileage int64   // used when the provider reports no average
}

// ReportConfig holds the rates and display settings of the valuation report
type ReportConfig struct {
	TaxRate    float64
	RangeFloor float64
	Currency   string
	Locale     string
}

// SessionConfig holds wizard session storage configuration
type SessionConfig struct {
	Store         string // memory, redis
	TTL           time.Duration
	AllowFallback bool // fall back to memory when redis is unreachable
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to enable OpenTelemetry
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64       // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string        // Service name for traces and metrics
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool          // Export metrics alongside traces
	MetricsInterval   time.Duration // Metric export interval
	LogsEnabled       bool          // Export logs to the collector
}

// ProfilerConfig holds continuous profiling configuration
type ProfilerConfig struct {
	Enabled          bool
	ServerAddress    string
	BasicAuthUser    string
	BasicAuthPass    string
	SpanProfiles     bool // link profiles to trace spans
	MutexProfileRate int
	BlockProfileRate int
}

// Mileage policies
const (
	PolicyLinear = "linear"
	PolicyFlat   = "flat"
)

// Session stores
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TRADEIN_ prefix (e.g., TRADEIN_SESSION_STORE)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return loadFrom(v)
}

// LoadFile loads configuration from an explicit file path, still honouring
// TRADEIN_ environment overrides
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return loadFrom(v)
}

func loadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("TRADEIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Provider: ProviderConfig{
			BaseURL:          v.GetString("provider.base_url"),
			APIKeyEnv:        v.GetString("provider.api_key_env"),
			TimeoutSeconds:   v.GetInt("provider.timeout_seconds"),
			MaxResponseBytes: v.GetInt64("provider.max_response_bytes"),
			SlowCallThresh:   v.GetDuration("provider.slow_call_threshold"),
		},
		Valuation: ValuationConfig{
			MileagePolicy:         v.GetString("valuation.mileage_policy"),
			RatePerThousand:       v.GetFloat64("valuation.rate_per_thousand"),
			FlatAmount:            v.GetFloat64("valuation.flat_amount"),
			DefaultAverageMileage: v.GetInt64("valuation.default_average_mileage"),
		},
		Report: ReportConfig{
			TaxRate:    v.GetFloat64("report.tax_rate"),
			RangeFloor: v.GetFloat64("report.range_floor"),
			Currency:   v.GetString("report.currency"),
			Locale:     v.GetString("report.locale"),
		},
		Session: SessionConfig{
			Store:         v.GetString("session.store"),
			TTL:           v.GetDuration("session.ttl"),
			AllowFallback: v.GetBool("session.allow_fallback"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Profiler: ProfilerConfig{
			Enabled:          v.GetBool("profiler.enabled"),
			ServerAddress:    v.GetString("profiler.server_address"),
			BasicAuthUser:    v.GetString("profiler.basic_auth_user"),
			BasicAuthPass:    v.GetString("profiler.basic_auth_password"),
			SpanProfiles:     v.GetBool("profiler.span_profiles"),
			MutexProfileRate: v.GetInt("profiler.mutex_profile_rate"),
			BlockProfileRate: v.GetInt("profiler.block_profile_rate"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tradein-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Quotes make two provider calls of up to 30s each, in parallel
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins have no "*" fallback. An empty list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.accu-trade.com"
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "ACCU_TRADE_API_KEY"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Provider.MaxResponseBytes == 0 {
		cfg.Provider.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.Provider.SlowCallThresh == 0 {
		cfg.Provider.SlowCallThresh = 2 * time.Second
	}
	if cfg.Valuation.MileagePolicy == "" {
		cfg.Valuation.MileagePolicy = PolicyLinear
	}
	if cfg.Valuation.RatePerThousand == 0 {
		cfg.Valuation.RatePerThousand = 100
	}
	if cfg.Valuation.FlatAmount == 0 {
		cfg.Valuation.FlatAmount = 750
	}
	if cfg.Valuation.DefaultAverageMileage == 0 {
		cfg.Valuation.DefaultAverageMileage = 100000
	}
	if cfg.Report.TaxRate == 0 {
		cfg.Report.TaxRate = 0.13
	}
	if cfg.Report.RangeFloor == 0 {
		cfg.Report.RangeFloor = 0.9
	}
	if cfg.Report.Currency == "" {
		cfg.Report.Currency = "CAD"
	}
	if cfg.Report.Locale == "" {
		cfg.Report.Locale = "en-CA"
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = SessionStoreMemory
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * time.Minute
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	// Note: Insecure defaults to false (TLS enabled by default)
	if cfg.Profiler.ServerAddress == "" {
		cfg.Profiler.ServerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Valuation.MileagePolicy {
	case PolicyLinear, PolicyFlat:
	default:
		return fmt.Errorf("valuation.mileage_policy must be %q or %q, got %q",
			PolicyLinear, PolicyFlat, c.Valuation.MileagePolicy)
	}
	if c.Valuation.RatePerThousand < 0 || c.Valuation.FlatAmount < 0 {
		return fmt.Errorf("valuation rates cannot be negative")
	}
	if c.Valuation.DefaultAverageMileage < 0 {
		return fmt.Errorf("valuation.default_average_mileage cannot be negative")
	}

	if c.Report.TaxRate < 0 || c.Report.TaxRate > 1 {
		return fmt.Errorf("report.tax_rate must be between 0.0 and 1.0, got %f", c.Report.TaxRate)
	}
	if c.Report.RangeFloor <= 0 || c.Report.RangeFloor > 1 {
		return fmt.Errorf("report.range_floor must be in (0.0, 1.0], got %f", c.Report.RangeFloor)
	}

	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q",
			SessionStoreMemory, SessionStoreRedis, c.Session.Store)
	}
	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session.ttl must be at least 1m, got %s", c.Session.TTL)
	}

	u, err := url.Parse(c.Provider.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("provider.base_url must be an absolute http(s) URL, got %q", c.Provider.BaseURL)
	}
	if c.Provider.TimeoutSeconds < 0 {
		return fmt.Errorf("provider.timeout_seconds cannot be negative")
	}

	// Production-specific validations
	if c.IsProduction() {
		if u.Scheme != "https" {
			return fmt.Errorf("provider.base_url must use https in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
