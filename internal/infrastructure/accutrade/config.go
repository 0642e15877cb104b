package accutrade

import (
	"errors"
	"net/url"
	"os"
	"strings"
)

// Config holds configuration for the AccuTrade valuation API
type Config struct {
	// BaseURL is the API root, without trailing slash
	BaseURL string
	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxResponseBytes caps the size of a provider response body
	MaxResponseBytes int64
}

const (
	// DefaultBaseURL is the production API endpoint
	DefaultBaseURL = "https://api.accu-trade.com"
	// DefaultAPIKeyEnv is the environment variable read for the API key
	DefaultAPIKeyEnv = "ACCU_TRADE_API_KEY"
	// DefaultTimeoutSeconds bounds a single provider call
	DefaultTimeoutSeconds = 30
	// DefaultMaxResponseBytes limits the response body size to prevent memory exhaustion
	DefaultMaxResponseBytes int64 = 10 * 1024 * 1024
)

// Errors for AccuTrade configuration
var (
	ErrConfigInvalidBaseURL = errors.New("accutrade: base URL must be an absolute http(s) URL")
	ErrMissingAPIKey        = errors.New("accutrade: API key is not set")
)

// NewConfig creates a configuration with defaults
func NewConfig() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		APIKeyEnv:        DefaultAPIKeyEnv,
		TimeoutSeconds:   DefaultTimeoutSeconds,
		MaxResponseBytes: DefaultMaxResponseBytes,
	}
}

// Validate validates the configuration, filling defaults for unset fields
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfigInvalidBaseURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return nil
}

// CredentialSource supplies the API key for one request
type CredentialSource interface {
	APIKey() (string, error)
}

// EnvCredential reads the API key from the process environment on every call,
// so a key rotated in the environment takes effect without a restart.
type EnvCredential struct {
	Name string
}

// APIKey implements CredentialSource
func (e EnvCredential) APIKey() (string, error) {
	key, ok := os.LookupEnv(e.Name)
	if !ok || strings.TrimSpace(key) == "" {
		return "", ErrMissingAPIKey
	}
	return strings.TrimSpace(key), nil
}

// StaticCredential is a fixed API key
type StaticCredential string

// APIKey implements CredentialSource
func (s StaticCredential) APIKey() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrMissingAPIKey
	}
	return string(s), nil
}
