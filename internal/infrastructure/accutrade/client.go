package accutrade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/tradein/backend/internal/domain/valuation"
)

// maxLoggedBodyBytes caps how much of an error response body is logged
const maxLoggedBodyBytes = 512

// CallRecorder receives one observation per provider call
type CallRecorder interface {
	RecordProviderCall(ctx context.Context, endpoint string, statusCode int, duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordProviderCall(context.Context, string, int, time.Duration, error) {}

// Client implements valuation.Provider against the AccuTrade HTTP API
type Client struct {
	config      *Config
	credentials CredentialSource
	httpClient  *http.Client
	recorder    CallRecorder
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithCredentials replaces the credential source. The default reads Config.APIKeyEnv.
func WithCredentials(src CredentialSource) Option {
	return func(cl *Client) {
		if src != nil {
			cl.credentials = src
		}
	}
}

// WithRecorder sets the call recorder
func WithRecorder(r CallRecorder) Option {
	return func(cl *Client) {
		if r != nil {
			cl.recorder = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a provider client with the given configuration
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:      config,
		credentials: EnvCredential{Name: config.APIKeyEnv},
		httpClient: &http.Client{
			Timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ valuation.Provider = (*Client)(nil)

// ---------------------------------------------------------------------------
// Vehicle lookups
// ---------------------------------------------------------------------------

// DecodeVIN calls vehicleByVIN and returns the candidates that carry a gid
func (c *Client) DecodeVIN(ctx context.Context, vin string) ([]valuation.VinCandidate, error) {
	const op = "decode vin"
	body, err := c.doGet(ctx, op, "vehicleByVIN", vin)
	if err != nil {
		return nil, err
	}

	list, err := parseVehicleList(body)
	if err != nil {
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("decode response: %w", err))
	}

	candidates := make([]valuation.VinCandidate, 0, len(list))
	for _, p := range list {
		cand := toCandidate(p)
		if cand.Gid == "" {
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// GetVehicle calls vehicle/{gid}
func (c *Client) GetVehicle(ctx context.Context, gid string) (*valuation.VehicleRecord, error) {
	const op = "get vehicle"
	body, err := c.doGet(ctx, op, "vehicle", gid)
	if err != nil {
		return nil, err
	}

	p, err := parseVehicle(body)
	if err != nil {
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("decode response: %w", err))
	}
	record := toVehicleRecord(p, json.RawMessage(body))
	if record.Gid == "" {
		record.Gid = gid
	}
	return record, nil
}

// ManualSearch calls vehicle/manual/{year}/{make}/{model}
func (c *Client) ManualSearch(ctx context.Context, year int, makeName, model string) (json.RawMessage, error) {
	const op = "manual search"
	body, err := c.doGet(ctx, op, "vehicle", "manual", yearPath(year), makeName, model)
	if err != nil {
		return nil, err
	}
	return rawJSON(op, body)
}

// ManualLookup posts {year, make, model, trim} to vehicle/manual
func (c *Client) ManualLookup(ctx context.Context, lookup valuation.ManualLookup) (json.RawMessage, error) {
	const op = "manual lookup"
	payload := map[string]any{
		"year":  lookup.Year,
		"make":  lookup.Make,
		"model": lookup.Model,
		"trim":  lookup.Trim,
	}
	body, err := c.doPost(ctx, op, payload, "vehicle", "manual")
	if err != nil {
		return nil, err
	}
	return rawJSON(op, body)
}

// ---------------------------------------------------------------------------
// Catalog lookups
// ---------------------------------------------------------------------------

// ListMakes calls makes/byYear/{year}
func (c *Client) ListMakes(ctx context.Context, year int) ([]valuation.CatalogOption, error) {
	const op = "list makes"
	body, err := c.doGet(ctx, op, "makes", "byYear", yearPath(year))
	if err != nil {
		return nil, err
	}

	entries, ok, err := parseCatalog(body)
	if err != nil {
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("decode response: %w", err))
	}
	if !ok {
		c.logUnexpectedShape(op, body)
		return []valuation.CatalogOption{}, nil
	}
	out := make([]valuation.CatalogOption, 0, len(entries))
	for _, e := range entries {
		if opt, ok := toMakeOption(e); ok {
			out = append(out, opt)
		}
	}
	return out, nil
}

// ListModels calls models/{year}/{Make}
func (c *Client) ListModels(ctx context.Context, year int, makeName string) ([]string, error) {
	const op = "list models"
	body, err := c.doGet(ctx, op, "models", yearPath(year), valuation.FormatMake(makeName))
	if err != nil {
		return nil, err
	}

	entries, ok, err := parseCatalog(body)
	if err != nil {
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("decode response: %w", err))
	}
	if !ok {
		c.logUnexpectedShape(op, body)
		return []string{}, nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := toModelName(e); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// ListTrims calls styles/{year}/{Make}/{model}
func (c *Client) ListTrims(ctx context.Context, year int, makeName, model string) ([]valuation.TrimOption, error) {
	const op = "list trims"
	body, err := c.doGet(ctx, op, "styles", yearPath(year), valuation.FormatMake(makeName), model)
	if err != nil {
		return nil, err
	}

	entries, ok, err := parseCatalog(body)
	if err != nil {
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("decode response: %w", err))
	}
	if !ok {
		c.logUnexpectedShape(op, body)
		return []valuation.TrimOption{}, nil
	}
	out := make([]valuation.TrimOption, 0, len(entries))
	for _, e := range entries {
		if opt, ok := toTrimOption(e); ok {
			out = append(out, opt)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, op string, segments ...string) ([]byte, error) {
	return c.do(ctx, op, http.MethodGet, nil, segments...)
}

func (c *Client) doPost(ctx context.Context, op string, payload any, segments ...string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("accutrade: failed to marshal request: %w", err)
	}
	return c.do(ctx, op, http.MethodPost, body, segments...)
}

// do performs one provider call. The API key travels only in the query string
// and never appears in logs or returned errors.
func (c *Client) do(ctx context.Context, op, method string, payload []byte, segments ...string) ([]byte, error) {
	endpoint := segments[0]

	apiKey, err := c.credentials.APIKey()
	if err != nil {
		c.logger.Error("Valuation provider credential missing",
			zap.String("operation", op),
			zap.String("env", c.config.APIKeyEnv),
		)
		return nil, &valuation.Error{
			Kind:    valuation.KindConfiguration,
			Op:      op,
			Message: c.config.APIKeyEnv + " is not configured",
			Err:     err,
		}
	}

	reqURL := c.buildURL(apiKey, segments...)

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("create request: %w", redact(err, apiKey)))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redact(err, apiKey)
		c.recorder.RecordProviderCall(ctx, endpoint, 0, time.Since(start), err)
		c.logger.Warn("Valuation provider unreachable",
			zap.String("operation", op),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, valuation.NewUpstreamError(op, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes+1))
	duration := time.Since(start)
	if err != nil {
		err = redact(err, apiKey)
		c.recorder.RecordProviderCall(ctx, endpoint, resp.StatusCode, duration, err)
		return nil, valuation.NewUpstreamError(op, 0, fmt.Errorf("read response: %w", err))
	}
	if int64(len(body)) > c.config.MaxResponseBytes {
		err = fmt.Errorf("response exceeds %d bytes", c.config.MaxResponseBytes)
		c.recorder.RecordProviderCall(ctx, endpoint, resp.StatusCode, duration, err)
		return nil, valuation.NewUpstreamError(op, 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upErr := valuation.NewUpstreamError(op, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
		c.recorder.RecordProviderCall(ctx, endpoint, resp.StatusCode, duration, upErr)
		c.logger.Warn("Valuation provider returned error status",
			zap.String("operation", op),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("response", truncate(body, maxLoggedBodyBytes)),
		)
		return nil, upErr
	}

	c.recorder.RecordProviderCall(ctx, endpoint, resp.StatusCode, duration, nil)
	c.logger.Debug("Valuation provider call completed",
		zap.String("operation", op),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return body, nil
}

// buildURL escapes every path segment and appends the apiKey query parameter
func (c *Client) buildURL(apiKey string, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	q := url.Values{}
	q.Set("apiKey", apiKey)
	return c.config.BaseURL + "/" + strings.Join(escaped, "/") + "?" + q.Encode()
}

func (c *Client) logUnexpectedShape(op string, body []byte) {
	c.logger.Warn("Valuation provider returned unexpected catalog shape",
		zap.String("operation", op),
		zap.String("response", truncate(body, maxLoggedBodyBytes)),
	)
}

func rawJSON(op string, body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, valuation.NewUpstreamError(op, 0, errors.New("response is not valid JSON"))
	}
	return json.RawMessage(body), nil
}

// redact strips the request URL from transport errors so the API key is not leaked
func redact(err error, apiKey string) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	if apiKey != "" && strings.Contains(err.Error(), apiKey) {
		return errors.New(strings.ReplaceAll(err.Error(), apiKey, "REDACTED"))
	}
	return err
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
