package accutrade

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradein/backend/internal/domain/valuation"
)

const testAPIKey = "test-api-key"

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, cfg.Validate())

		assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
		assert.Equal(t, DefaultAPIKeyEnv, cfg.APIKeyEnv)
		assert.Equal(t, DefaultTimeoutSeconds, cfg.TimeoutSeconds)
		assert.Equal(t, DefaultMaxResponseBytes, cfg.MaxResponseBytes)
	})

	t.Run("trims trailing slash", func(t *testing.T) {
		cfg := &Config{BaseURL: "http://localhost:9000/"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	})

	t.Run("rejects relative URL", func(t *testing.T) {
		cfg := &Config{BaseURL: "api.accu-trade.com"}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalidBaseURL)
	})
}

func TestEnvCredential(t *testing.T) {
	t.Setenv("TEST_ACCU_KEY", "  secret ")
	key, err := EnvCredential{Name: "TEST_ACCU_KEY"}.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	t.Setenv("TEST_ACCU_KEY", "")
	_, err = EnvCredential{Name: "TEST_ACCU_KEY"}.APIKey()
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = EnvCredential{Name: "TEST_ACCU_KEY_UNSET_" + t.Name()}.APIKey()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type recordedCall struct {
	endpoint string
	status   int
	err      error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeRecorder) RecordProviderCall(_ context.Context, endpoint string, status int, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{endpoint: endpoint, status: status, err: err})
}

// newTestClient starts a provider stub answering every request with handler
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *fakeRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rec := &fakeRecorder{}
	cfg := &Config{BaseURL: server.URL, TimeoutSeconds: 5}
	all := append([]Option{WithCredentials(StaticCredential(testAPIKey)), WithRecorder(rec)}, opts...)
	client, err := NewClient(cfg, all...)
	require.NoError(t, err)
	return client, rec
}

func jsonHandler(t *testing.T, wantPath, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.EscapedPath())
		assert.Equal(t, testAPIKey, r.URL.Query().Get("apiKey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

// ---------------------------------------------------------------------------
// Vehicle Lookup Tests
// ---------------------------------------------------------------------------

func TestClient_DecodeVIN(t *testing.T) {
	t.Run("bare array drops entries without gid", func(t *testing.T) {
		body := `[
			{"gid": 425364, "year": 2003, "make": "Honda", "model": "Accord", "style": "EX 4dr Sedan"},
			{"gid": "425365", "year": "2003", "make": "Honda", "model": "Accord", "style": "LX 4dr Sedan"},
			{"year": 2003, "make": "Honda", "model": "Accord", "style": "No gid"},
			"junk"
		]`
		client, rec := newTestClient(t, jsonHandler(t, "/vehicleByVIN/1HGCM82633A004352", body))

		got, err := client.DecodeVIN(context.Background(), "1HGCM82633A004352")

		require.NoError(t, err)
		want := []valuation.VinCandidate{
			{Gid: "425364", Year: 2003, Make: "Honda", Model: "Accord", Style: "EX 4dr Sedan"},
			{Gid: "425365", Year: 2003, Make: "Honda", Model: "Accord", Style: "LX 4dr Sedan"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("candidates mismatch (-want +got):\n%s", diff)
		}
		require.Len(t, rec.calls, 1)
		assert.Equal(t, "vehicleByVIN", rec.calls[0].endpoint)
		assert.Equal(t, http.StatusOK, rec.calls[0].status)
	})

	t.Run("wrapped list and single object", func(t *testing.T) {
		bodies := []string{
			`{"vehicles": [{"gid": "1", "year": 2020, "make": "Audi", "model": "A4", "webmodel": "A4", "extendedGid": "Premium"}]}`,
			`{"gid": "1", "year": 2020, "make": "Audi", "model": "A4", "webmodel": "A4", "extendedGid": "Premium"}`,
		}
		for _, body := range bodies {
			client, _ := newTestClient(t, jsonHandler(t, "/vehicleByVIN/WAUZZZ8K9AA000001", body))

			got, err := client.DecodeVIN(context.Background(), "WAUZZZ8K9AA000001")

			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "A4 Premium", got[0].Style)
		}
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicleByVIN/1HGCM82633A004352", `[]`))

		got, err := client.DecodeVIN(context.Background(), "1HGCM82633A004352")

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("scalar payload is an upstream error", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicleByVIN/1HGCM82633A004352", `"no"`))

		_, err := client.DecodeVIN(context.Background(), "1HGCM82633A004352")

		assert.ErrorIs(t, err, valuation.ErrUpstream)
	})

	t.Run("non-2xx preserves status", func(t *testing.T) {
		client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
		})

		_, err := client.DecodeVIN(context.Background(), "1HGCM82633A004352")

		var verr *valuation.Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, valuation.KindUpstream, verr.Kind)
		assert.Equal(t, http.StatusNotFound, verr.StatusCode)
		require.Len(t, rec.calls, 1)
		assert.Error(t, rec.calls[0].err)
	})
}

func TestClient_GetVehicle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantBase   string
		wantMarket string
		wantTrade  string
		wantAvg    string
	}{
		{
			name:       "trade and market",
			body:       `{"trade": 18000, "market": 21000, "avgMileage": 90000}`,
			wantBase:   "18000",
			wantMarket: "21000",
			wantTrade:  "18000",
			wantAvg:    "90000",
		},
		{
			name:       "vehicleBasePrice wins over trade",
			body:       `{"vehicleBasePrice": 20000, "trade": 18000, "market": 21000}`,
			wantBase:   "20000",
			wantMarket: "21000",
			wantTrade:  "18000",
		},
		{
			name:       "basePrice and marketValue",
			body:       `{"basePrice": "19500.50", "marketValue": 22000, "basemiles": 120000}`,
			wantBase:   "19500.5",
			wantMarket: "22000",
			wantAvg:    "120000",
		},
		{
			name:       "projected prices",
			body:       `{"baseProjectedPrice": 17000, "baseProjectedMarketPrice": 19000}`,
			wantBase:   "17000",
			wantMarket: "19000",
		},
		{
			name:     "wrapped vehicle",
			body:     `{"vehicle": {"basePrice": 16000}}`,
			wantBase: "16000",
		},
		{
			name:     "one-element array",
			body:     `[{"basePrice": 15000}]`,
			wantBase: "15000",
		},
		{
			name:    "avgMileage wins over basemiles",
			body:    `{"basePrice": 1, "avgMileage": 80000, "basemiles": 120000}`,
			wantAvg: "80000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, jsonHandler(t, "/vehicle/425364", tt.body))

			record, err := client.GetVehicle(context.Background(), "425364")

			require.NoError(t, err)
			assert.Equal(t, "425364", record.Gid)
			assert.JSONEq(t, tt.body, string(record.Raw))
			if tt.wantBase != "" {
				require.True(t, record.BasePrice.Valid)
				assert.Equal(t, tt.wantBase, record.BasePrice.Decimal.String())
			}
			if tt.wantMarket != "" {
				require.True(t, record.MarketValue.Valid)
				assert.Equal(t, tt.wantMarket, record.MarketValue.Decimal.String())
			}
			if tt.wantTrade != "" {
				require.True(t, record.TradeInValue.Valid)
				assert.Equal(t, tt.wantTrade, record.TradeInValue.Decimal.String())
			} else {
				assert.False(t, record.TradeInValue.Valid)
			}
			if tt.wantAvg != "" {
				require.True(t, record.AverageMileage.Valid)
				assert.Equal(t, tt.wantAvg, record.AverageMileage.Decimal.String())
			}
		})
	}

	t.Run("absent prices stay absent", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicle/1", `{"gid": "1", "make": "Audi"}`))

		record, err := client.GetVehicle(context.Background(), "1")

		require.NoError(t, err)
		assert.False(t, record.BasePrice.Valid)
		assert.False(t, record.MarketValue.Valid)
		_, err = record.Pricing()
		assert.ErrorIs(t, err, valuation.ErrPartialData)
	})

	t.Run("explicit zero is kept", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicle/1", `{"trade": 0}`))

		record, err := client.GetVehicle(context.Background(), "1")

		require.NoError(t, err)
		require.True(t, record.BasePrice.Valid)
		assert.True(t, record.BasePrice.Decimal.IsZero())
	})

	t.Run("non-numeric price is an upstream error", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicle/1", `{"basePrice": "N/A"}`))

		_, err := client.GetVehicle(context.Background(), "1")

		assert.ErrorIs(t, err, valuation.ErrUpstream)
	})

	t.Run("malformed JSON is an upstream error", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicle/1", `{"basePrice": `))

		_, err := client.GetVehicle(context.Background(), "1")

		assert.ErrorIs(t, err, valuation.ErrUpstream)
	})
}

func TestClient_GetVehicle_PricingRepeatable(t *testing.T) {
	bodies := map[string]string{
		"trade and market":          `{"trade": 18000, "market": 21000, "avgMileage": 90000}`,
		"vehicleBasePrice":          `{"vehicleBasePrice": 20000, "trade": 18000, "market": 21000}`,
		"basePrice and marketValue": `{"basePrice": "19500.50", "marketValue": 22000, "basemiles": 120000}`,
		"projected prices":          `{"baseProjectedPrice": 17000, "baseProjectedMarketPrice": 19000}`,
		"wrapped vehicle":           `{"vehicle": {"basePrice": 16000}}`,
		"one-element array":         `[{"basePrice": 15000}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			var hits atomic.Int32
			handler := jsonHandler(t, "/vehicle/425364", body)
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				handler(w, r)
			})

			first, err := client.GetVehicle(context.Background(), "425364")
			require.NoError(t, err)
			second, err := client.GetVehicle(context.Background(), "425364")
			require.NoError(t, err)

			firstPricing, err := first.Pricing()
			require.NoError(t, err)
			secondPricing, err := second.Pricing()
			require.NoError(t, err)

			if diff := cmp.Diff(firstPricing, secondPricing); diff != "" {
				t.Errorf("pricing differs between calls (-first +second):\n%s", diff)
			}
			assert.Equal(t, int32(2), hits.Load())
		})
	}
}

func TestClient_MissingCredential(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	t.Setenv("TEST_ACCU_MISSING", "")
	client, err := NewClient(&Config{BaseURL: server.URL, APIKeyEnv: "TEST_ACCU_MISSING"})
	require.NoError(t, err)

	_, err = client.GetVehicle(context.Background(), "1")

	assert.ErrorIs(t, err, valuation.ErrConfiguration)
	assert.Equal(t, http.StatusInternalServerError, valuation.HTTPStatus(err))
	assert.Equal(t, int32(0), hits.Load(), "no unauthenticated call may be made")
}

func TestClient_KeyReadPerRequest(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("apiKey"))
		mu.Unlock()
		_, _ = io.WriteString(w, `[]`)
	}))
	defer server.Close()

	t.Setenv("TEST_ACCU_ROTATE", "first")
	client, err := NewClient(&Config{BaseURL: server.URL, APIKeyEnv: "TEST_ACCU_ROTATE"})
	require.NoError(t, err)

	_, err = client.ListMakes(context.Background(), 2022)
	require.NoError(t, err)
	t.Setenv("TEST_ACCU_ROTATE", "second")
	_, err = client.ListMakes(context.Background(), 2022)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestClient_UnreachableDoesNotLeakKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(&Config{BaseURL: url}, WithCredentials(StaticCredential("super-secret-key")))
	require.NoError(t, err)

	_, err = client.ListMakes(context.Background(), 2022)

	require.Error(t, err)
	assert.ErrorIs(t, err, valuation.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, valuation.HTTPStatus(err))
	assert.NotContains(t, err.Error(), "super-secret-key")
}

func TestClient_ResponseTooLarge(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["Audi","BMW","Chevrolet"]`)
	})
	client.config.MaxResponseBytes = 10

	_, err := client.ListModels(context.Background(), 2022, "audi")

	assert.ErrorIs(t, err, valuation.ErrUpstream)
}

func TestClient_Manual(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicle/manual/2022/Audi/A4", `{"gid":"9"}`))

		raw, err := client.ManualSearch(context.Background(), 2022, "Audi", "A4")

		require.NoError(t, err)
		assert.JSONEq(t, `{"gid":"9"}`, string(raw))
	})

	t.Run("lookup posts the vehicle", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/vehicle/manual", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"year": float64(2022), "make": "Audi", "model": "A4", "trim": "Premium"}, body)
			_, _ = io.WriteString(w, `[{"gid":"9"}]`)
		})

		raw, err := client.ManualLookup(context.Background(), valuation.ManualLookup{Year: 2022, Make: "Audi", Model: "A4", Trim: "Premium"})

		require.NoError(t, err)
		assert.JSONEq(t, `[{"gid":"9"}]`, string(raw))
	})

	t.Run("invalid JSON is an upstream error", func(t *testing.T) {
		client, _ := newTestClient(t, jsonHandler(t, "/vehicle/manual/2022/Audi/A4", `<html>`))

		_, err := client.ManualSearch(context.Background(), 2022, "Audi", "A4")

		assert.ErrorIs(t, err, valuation.ErrUpstream)
	})
}

// ---------------------------------------------------------------------------
// Catalog Tests
// ---------------------------------------------------------------------------

func TestClient_ListMakes(t *testing.T) {
	body := `[{"make": "Audi"}, {"name": "BMW"}, "Chevrolet", {"make": ""}, null, 42]`
	client, _ := newTestClient(t, jsonHandler(t, "/makes/byYear/2022", body))

	got, err := client.ListMakes(context.Background(), 2022)

	require.NoError(t, err)
	want := []valuation.CatalogOption{
		{Value: "audi", Label: "Audi"},
		{Value: "bmw", Label: "BMW"},
		{Value: "chevrolet", Label: "Chevrolet"},
		{Value: "42", Label: "42"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("makes mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ListModels(t *testing.T) {
	t.Run("title-cases make and maps variants", func(t *testing.T) {
		body := `["A3", {"name": "A4"}, {"model": "Q5"}, {"other": "x"}, ""]`
		client, _ := newTestClient(t, jsonHandler(t, "/models/2022/Audi", body))

		got, err := client.ListModels(context.Background(), 2022, "audi")

		require.NoError(t, err)
		assert.Equal(t, []string{"A3", "A4", "Q5"}, got)
	})

	for name, body := range map[string]string{
		"empty array":  `[]`,
		"object":       `{"models": "unavailable"}`,
		"string":       `"oops"`,
		"empty object": `{}`,
	} {
		t.Run(name+" yields empty list", func(t *testing.T) {
			client, _ := newTestClient(t, jsonHandler(t, "/models/2022/Audi", body))

			got, err := client.ListModels(context.Background(), 2022, "AUDI")

			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}

	for name, body := range map[string]string{
		"html error page": `<html>502 Bad Gateway</html>`,
		"truncated array": `[{"name": "A4"`,
		"empty body":      ``,
	} {
		t.Run(name+" is an upstream error", func(t *testing.T) {
			client, _ := newTestClient(t, jsonHandler(t, "/models/2022/Audi", body))

			got, err := client.ListModels(context.Background(), 2022, "audi")

			assert.Nil(t, got)
			assert.ErrorIs(t, err, valuation.ErrUpstream)
			assert.Equal(t, http.StatusBadGateway, valuation.HTTPStatus(err))
		})
	}

	t.Run("non-2xx is an upstream error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.ListModels(context.Background(), 2022, "audi")

		assert.ErrorIs(t, err, valuation.ErrUpstream)
		assert.Equal(t, http.StatusServiceUnavailable, valuation.HTTPStatus(err))
	})
}

func TestClient_ListTrims(t *testing.T) {
	body := `[
		{"style": "Premium 4dr Sedan", "gid": 1001},
		{"webmodel": "A4", "extendedGid": "Komfort", "gid": "1002"},
		"Technik",
		{"gid": "1003"},
		{"style": ""}
	]`
	client, _ := newTestClient(t, jsonHandler(t, "/styles/2022/Audi/A4%20allroad", body))

	got, err := client.ListTrims(context.Background(), 2022, "audi", "A4 allroad")

	require.NoError(t, err)
	want := []valuation.TrimOption{
		{Trim: "Premium 4dr Sedan", Gid: "1001"},
		{Trim: "A4 Komfort", Gid: "1002"},
		{Trim: "Technik", Gid: ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trims mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ListTrims_UnexpectedShape(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(t, "/styles/2022/Audi/A4", `{"error": "bad"}`))

	got, err := client.ListTrims(context.Background(), 2022, "Audi", "A4")

	require.NoError(t, err)
	assert.Equal(t, []valuation.TrimOption{}, got)
}

func TestClient_ListTrims_MalformedJSON(t *testing.T) {
	for name, body := range map[string]string{
		"html error page": `<html>502 Bad Gateway</html>`,
		"truncated array": `[{"style": "Premium", "gid": 1001}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, jsonHandler(t, "/styles/2022/Audi/A4", body))

			got, err := client.ListTrims(context.Background(), 2022, "Audi", "A4")

			assert.Nil(t, got)
			assert.ErrorIs(t, err, valuation.ErrUpstream)
			assert.Equal(t, http.StatusBadGateway, valuation.HTTPStatus(err))
		})
	}
}

func TestClient_ListMakes_MalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler(t, "/makes/byYear/2022", `<html>oops</html>`))

	_, err := client.ListMakes(context.Background(), 2022)

	assert.ErrorIs(t, err, valuation.ErrUpstream)
}
