// Package integration runs the HTTP API end to end: real provider client,
// session store and middleware stack, with the provider replaced by a fake
// upstream server.
package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	valuationapp "github.com/tradein/backend/internal/application/valuation"
	wizardapp "github.com/tradein/backend/internal/application/wizard"
	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/infrastructure/accutrade"
	"github.com/tradein/backend/internal/infrastructure/logger"
	"github.com/tradein/backend/internal/infrastructure/session"
	"github.com/tradein/backend/internal/interfaces/http/handler"
	"github.com/tradein/backend/internal/interfaces/http/middleware"
	"github.com/tradein/backend/internal/interfaces/http/router"
	"github.com/tradein/backend/tests/testutil"
)

const testAPIKey = "integration-key"

// AppOptions tunes the assembled application
type AppOptions struct {
	Store          session.Store
	MaxBodySize    int64
	RateLimit      int
	AllowedOrigins []string
}

// TestApp is the HTTP API wired the way the server binary wires it
type TestApp struct {
	Handler  http.Handler
	Upstream *testutil.FakeUpstream
}

// NewTestApp assembles the API against a fresh fake upstream
func NewTestApp(t *testing.T, opts AppOptions) *TestApp {
	t.Helper()

	log := zaptest.NewLogger(t)
	upstream := testutil.NewFakeUpstream(t, testAPIKey)

	client, err := accutrade.NewClient(&accutrade.Config{
		BaseURL:        upstream.URL(),
		TimeoutSeconds: 5,
	},
		accutrade.WithCredentials(accutrade.StaticCredential(testAPIKey)),
		accutrade.WithLogger(log),
	)
	require.NoError(t, err)

	policy, err := valuation.NewMileagePolicy(valuation.PolicyLinear, valuation.DefaultRatePerThousand, valuation.DefaultFlatAmount)
	require.NoError(t, err)
	gateway := valuationapp.NewGatewayService(client, policy, valuation.DefaultAverageMileage, log)

	store := opts.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	t.Cleanup(func() { _ = store.Close() })

	sessions, err := wizardapp.NewSessionService(store, gateway, wizardapp.Config{SessionTTL: 30 * time.Minute},
		wizardapp.WithLogger(log),
	)
	require.NoError(t, err)

	maxBody := opts.MaxBodySize
	if maxBody == 0 {
		maxBody = 1 << 20
	}

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.AllowedOrigins
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(maxBody))
	if opts.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(opts.RateLimit, time.Minute)
		t.Cleanup(limiter.Stop)
		engine.Use(middleware.RateLimit(limiter))
	}

	system := handler.NewSystemHandler("tradein-backend", "test")
	engine.GET("/health", system.Health)
	router.NewRouter(engine).
		Register(system.Routes(), handler.NewVehicleHandler(gateway).Routes(), handler.NewWizardHandler(sessions).Routes()).
		Setup()

	return &TestApp{Handler: engine, Upstream: upstream}
}

// Do sends a request through the full middleware stack
func (a *TestApp) Do(t *testing.T, method, path, body string, headers ...string) testutil.Response {
	t.Helper()
	return testutil.Do(t, a.Handler, method, path, body, headers...)
}

// Provider payloads for a 2003 Honda Accord EX sedan
const (
	accordGid     = "425364"
	accordVIN     = "1HGCM66543A056209"
	accordVehicle = `{
		"gid": "425364",
		"year": 2003,
		"make": "Honda",
		"model": "Accord",
		"style": "EX 4dr Sedan",
		"basePrice": 20000,
		"market": 21500,
		"trade": 18000,
		"avgMileage": 100000
	}`
)

// StubAccord serves the Accord catalog and vehicle lookups
func (a *TestApp) StubAccord() {
	a.Upstream.Handle("/vehicleByVIN/"+accordVIN, http.StatusOK, "["+accordVehicle+"]")
	a.Upstream.Handle("/vehicle/"+accordGid, http.StatusOK, accordVehicle)
	a.Upstream.Handle("/makes/byYear/2003", http.StatusOK, `["Acura","Honda",{"make":"Toyota"}]`)
	a.Upstream.Handle("/models/2003/Honda", http.StatusOK, `["Accord",{"name":"Civic"}]`)
	a.Upstream.Handle("/styles/2003/Honda/Accord", http.StatusOK,
		`[{"style":"EX 4dr Sedan","gid":"425364"},{"style":"LX 4dr Sedan","gid":"425365"}]`)
}
