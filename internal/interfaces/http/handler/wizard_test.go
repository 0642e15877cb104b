package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	wizardapp "github.com/tradein/backend/internal/application/wizard"
	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/infrastructure/session"
	"github.com/tradein/backend/internal/interfaces/http/dto"
	"github.com/tradein/backend/internal/interfaces/http/middleware"
	"github.com/tradein/backend/internal/interfaces/http/router"
)

type wizardHarness struct {
	engine   *gin.Engine
	provider *MockProvider
}

func newWizardHarness(t *testing.T) *wizardHarness {
	t.Helper()
	middleware.SetupValidator()

	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	provider := new(MockProvider)
	svc, err := wizardapp.NewSessionService(store, newTestGateway(provider), wizardapp.Config{SessionTTL: time.Hour},
		wizardapp.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine).Register(NewWizardHandler(svc).Routes()).Setup()

	return &wizardHarness{engine: engine, provider: provider}
}

func (h *wizardHarness) do(t *testing.T, method, path, body string, wantStatus int) []byte {
	t.Helper()
	w := doRequest(h.engine, method, path, body)
	require.Equal(t, wantStatus, w.Code, "%s %s: %s", method, path, w.Body.String())
	return w.Body.Bytes()
}

func (h *wizardHarness) view(t *testing.T, method, path, body string, wantStatus int) wizardapp.SessionView {
	t.Helper()
	var view wizardapp.SessionView
	require.NoError(t, json.Unmarshal(h.do(t, method, path, body, wantStatus), &view))
	return view
}

func (h *wizardHarness) start(t *testing.T) string {
	t.Helper()
	view := h.view(t, http.MethodPost, "/api/wizard/sessions", "", http.StatusCreated)
	return "/api/wizard/sessions/" + view.ID.String()
}

const accordDraftJSON = `{"year":2003,"make":"Honda","model":"Accord","trim":"EX 4dr Sedan","gid":"425364","mileage":50000}`

const validContactJSON = `{"firstName":"Jordan","lastName":"Lee","phone":"+1 416-555-0100","email":"jordan@example.com","acceptTerms":true}`

func TestWizardHandler_Start(t *testing.T) {
	h := newWizardHarness(t)

	view := h.view(t, http.MethodPost, "/api/wizard/sessions", "", http.StatusCreated)

	assert.NotEqual(t, uuid.Nil, view.ID)
	assert.Equal(t, "vehicle", view.Step)
	assert.Equal(t, 1, view.StepNumber)
	assert.Equal(t, 7, view.TotalSteps)
	assert.Equal(t, "Find A Vehicle", view.VehicleForm.SubmitLabel)
	assert.False(t, view.VehicleForm.SubmitEnabled)
}

func TestWizardHandler_CompleteFlow(t *testing.T) {
	h := newWizardHarness(t)
	h.provider.On("GetVehicle", mock.Anything, "425364").Return(accordRecord(), nil)
	base := h.start(t)

	draft := h.view(t, http.MethodPatch, base+"/vehicle", accordDraftJSON, http.StatusOK)
	assert.Equal(t, "value", draft.VehicleForm.Phase)
	assert.Equal(t, "Get Vehicle Value", draft.VehicleForm.SubmitLabel)
	assert.True(t, draft.VehicleForm.SubmitEnabled)

	specs := h.view(t, http.MethodPost, base+"/steps/vehicle", "", http.StatusOK)
	assert.Equal(t, "specs", specs.Step)
	require.NotNil(t, specs.State.Vehicle)
	assert.Equal(t, 20000.0, specs.State.Vehicle.VehicleBasePrice)
	assert.Equal(t, 5000.0, specs.State.Vehicle.VehiclePriceAdjustment)
	assert.True(t, specs.State.Vehicle.VehicleDesirability)

	assert.Equal(t, "financing", h.view(t, http.MethodPost, base+"/steps/specs", "", http.StatusOK).Step)
	assert.Equal(t, "damage", h.view(t, http.MethodPost, base+"/steps/financing", `{"financingStatus":"leased"}`, http.StatusOK).Step)
	assert.Equal(t, "additional", h.view(t, http.MethodPost, base+"/steps/damage", `{}`, http.StatusOK).Step)
	assert.Equal(t, "contact", h.view(t, http.MethodPost, base+"/steps/additional", `{"hasWinterTires":true}`, http.StatusOK).Step)
	final := h.view(t, http.MethodPost, base+"/steps/contact", validContactJSON, http.StatusOK)
	assert.Equal(t, "report", final.Step)
	assert.Equal(t, "leased", final.State.Financing.FinancingStatus)

	var report wizardapp.ReportResponse
	require.NoError(t, json.Unmarshal(h.do(t, http.MethodGet, base+"/report", "", http.StatusOK), &report))
	assert.Equal(t, 25000.0, report.Estimate.Max)
	assert.Equal(t, 22500.0, report.Estimate.Min)
	assert.Equal(t, 20000.0, report.BlackBookValue)
	assert.Equal(t, 2600.0, report.TaxSavings)
	assert.Equal(t, 22600.0, report.TotalBenefit)
	assert.Equal(t, "Below Average", report.MileageStatus)
	assert.Contains(t, report.Display.EstimateMax, "25,000")
	assert.Contains(t, report.Display.TotalBenefit, "22,600")

	h.provider.AssertNumberOfCalls(t, "GetVehicle", 2)
}

func TestWizardHandler_StepErrors(t *testing.T) {
	t.Run("wrong step", func(t *testing.T) {
		h := newWizardHarness(t)
		base := h.start(t)

		body := h.do(t, http.MethodPost, base+"/steps/specs", "", http.StatusConflict)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, dto.ErrCodeStepMismatch, resp.Code)
	})

	t.Run("draft update after vehicle step", func(t *testing.T) {
		h := newWizardHarness(t)
		h.provider.On("GetVehicle", mock.Anything, "425364").Return(accordRecord(), nil)
		base := h.start(t)
		h.do(t, http.MethodPost, base+"/steps/vehicle", accordDraftJSON, http.StatusOK)

		body := h.do(t, http.MethodPatch, base+"/vehicle", `{"make":"Toyota"}`, http.StatusConflict)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, dto.ErrCodeStepMismatch, resp.Code)
		view := h.view(t, http.MethodGet, base, "", http.StatusOK)
		assert.Equal(t, "specs", view.Step)
		assert.Equal(t, "Honda", view.VehicleForm.Make)
	})

	t.Run("unknown step", func(t *testing.T) {
		h := newWizardHarness(t)
		base := h.start(t)

		h.do(t, http.MethodPost, base+"/steps/paint", "", http.StatusNotFound)
	})

	t.Run("vehicle not ready never calls provider", func(t *testing.T) {
		h := newWizardHarness(t)
		base := h.start(t)

		body := h.do(t, http.MethodPost, base+"/steps/vehicle", `{"year":2003,"make":"Honda"}`, http.StatusBadRequest)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, dto.ErrCodeValidation, resp.Code)
		require.NotEmpty(t, resp.Details)
		assert.Equal(t, "mileage", resp.Details[0].Field)
		h.provider.AssertNotCalled(t, "GetVehicle", mock.Anything, mock.Anything)
	})

	t.Run("provider failure keeps vehicle step", func(t *testing.T) {
		h := newWizardHarness(t)
		h.provider.On("GetVehicle", mock.Anything, "425364").
			Return(nil, valuation.NewUpstreamError("get vehicle", 0, assert.AnError))
		base := h.start(t)

		h.do(t, http.MethodPost, base+"/steps/vehicle", accordDraftJSON, http.StatusBadGateway)

		view := h.view(t, http.MethodGet, base, "", http.StatusOK)
		assert.Equal(t, "vehicle", view.Step)
		assert.Nil(t, view.State.Vehicle)
	})

	t.Run("invalid json", func(t *testing.T) {
		h := newWizardHarness(t)
		base := h.start(t)

		body := h.do(t, http.MethodPost, base+"/steps/vehicle", `{"year":`, http.StatusBadRequest)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Code)
	})

	t.Run("contact validation details", func(t *testing.T) {
		h := newWizardHarness(t)
		h.provider.On("GetVehicle", mock.Anything, "425364").Return(accordRecord(), nil)
		base := h.start(t)
		h.do(t, http.MethodPost, base+"/steps/vehicle", accordDraftJSON, http.StatusOK)
		for _, step := range []string{"specs", "financing", "damage", "additional"} {
			h.do(t, http.MethodPost, base+"/steps/"+step, "", http.StatusOK)
		}

		body := h.do(t, http.MethodPost, base+"/steps/contact",
			`{"firstName":"Jordan","lastName":"Lee","phone":"12","email":"jordan@example.com","acceptTerms":false}`,
			http.StatusBadRequest)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(body, &resp))
		fields := make([]string, 0, len(resp.Details))
		for _, d := range resp.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"phone", "acceptTerms"}, fields)
	})
}

func TestWizardHandler_BackAndReport(t *testing.T) {
	h := newWizardHarness(t)
	h.provider.On("GetVehicle", mock.Anything, "425364").Return(accordRecord(), nil)
	base := h.start(t)

	body := h.do(t, http.MethodPost, base+"/back", "", http.StatusUnprocessableEntity)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Code)

	h.do(t, http.MethodPost, base+"/steps/vehicle", accordDraftJSON, http.StatusOK)
	h.do(t, http.MethodGet, base+"/report", "", http.StatusConflict)

	back := h.view(t, http.MethodPost, base+"/back", "", http.StatusOK)
	assert.Equal(t, "vehicle", back.Step)
	require.NotNil(t, back.State.Vehicle)
	assert.Equal(t, "425364", back.VehicleForm.Gid)
	assert.True(t, back.VehicleForm.SubmitEnabled)
}

func TestWizardHandler_Discard(t *testing.T) {
	h := newWizardHarness(t)
	base := h.start(t)

	h.do(t, http.MethodDelete, base, "", http.StatusNoContent)
	h.do(t, http.MethodGet, base, "", http.StatusNotFound)
}

func TestWizardHandler_UnknownSession(t *testing.T) {
	h := newWizardHarness(t)

	h.do(t, http.MethodGet, "/api/wizard/sessions/"+uuid.NewString(), "", http.StatusNotFound)
	h.do(t, http.MethodGet, "/api/wizard/sessions/not-a-uuid", "", http.StatusNotFound)
	h.do(t, http.MethodPatch, "/api/wizard/sessions/not-a-uuid/vehicle", `{}`, http.StatusNotFound)
}

func TestWizardHandler_UpdateVehicleValidation(t *testing.T) {
	h := newWizardHarness(t)
	base := h.start(t)

	body := h.do(t, http.MethodPatch, base+"/vehicle", `{"condition":"mint"}`, http.StatusBadRequest)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "condition", resp.Details[0].Field)
}

func TestWizardHandler_UpdateVehicleSelections(t *testing.T) {
	h := newWizardHarness(t)
	base := h.start(t)

	view := h.view(t, http.MethodPatch, base+"/vehicle",
		`{"vin":"1HGCM82633A004352","candidate":{"gid":"425364","year":2003,"make":"Honda","model":"Accord","style":"EX 4dr Sedan"},"mileage":50000}`,
		http.StatusOK)

	assert.Equal(t, "425364", view.VehicleForm.Gid)
	assert.Equal(t, "EX 4dr Sedan", view.VehicleForm.Trim)
	assert.Equal(t, "value", view.VehicleForm.Phase)

	view = h.view(t, http.MethodPatch, base+"/vehicle", `{"trimOption":{"trim":"LX","gid":"425365"}}`, http.StatusOK)

	assert.Equal(t, "LX", view.VehicleForm.Trim)
	assert.Equal(t, "425365", view.VehicleForm.Gid)

	h.do(t, http.MethodPatch, base+"/vehicle", `{"candidate":{"year":2003,"make":"Honda"}}`, http.StatusBadRequest)
	h.provider.AssertNotCalled(t, "GetVehicle", mock.Anything, mock.Anything)
}
