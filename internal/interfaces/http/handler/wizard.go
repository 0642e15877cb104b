package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	wizardapp "github.com/tradein/backend/internal/application/wizard"
	"github.com/tradein/backend/internal/domain/wizard"
	"github.com/tradein/backend/internal/infrastructure/logger"
	"github.com/tradein/backend/internal/interfaces/http/dto"
	"github.com/tradein/backend/internal/interfaces/http/middleware"
	"github.com/tradein/backend/internal/interfaces/http/router"
)

// WizardHandler serves the trade-in wizard session endpoints
type WizardHandler struct {
	BaseHandler
	sessions *wizardapp.SessionService
}

// NewWizardHandler creates a new WizardHandler
func NewWizardHandler(sessions *wizardapp.SessionService) *WizardHandler {
	return &WizardHandler{sessions: sessions}
}

// Routes returns the /wizard route group
func (h *WizardHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("wizard", "/wizard")
	g.Group("sessions", "/sessions").
		POST("", h.Start).
		GET("/:id", h.Get).
		DELETE("/:id", h.Discard).
		PATCH("/:id/vehicle", h.UpdateVehicle).
		POST("/:id/steps/:step", h.SubmitStep).
		POST("/:id/back", h.Back).
		GET("/:id/report", h.Report)
	return g
}

// Start handles POST /wizard/sessions
func (h *WizardHandler) Start(c *gin.Context) {
	view, err := h.sessions.Start(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// Get handles GET /wizard/sessions/:id
func (h *WizardHandler) Get(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// UpdateVehicle handles PATCH /wizard/sessions/:id/vehicle
func (h *WizardHandler) UpdateVehicle(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req wizardapp.VehicleDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	view, err := h.sessions.UpdateVehicleDraft(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SubmitStep handles POST /wizard/sessions/:id/steps/:step.
// The body is the step's output; an empty body submits the step defaults.
func (h *WizardHandler) SubmitStep(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		return
	}

	view, err := h.sessions.SubmitStep(c.Request.Context(), id, c.Param("step"), body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Back handles POST /wizard/sessions/:id/back
func (h *WizardHandler) Back(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.sessions.Back(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Report handles GET /wizard/sessions/:id/report
func (h *WizardHandler) Report(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	report, err := h.sessions.Report(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Discard handles DELETE /wizard/sessions/:id
func (h *WizardHandler) Discard(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Discard(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// sessionID parses the :id path parameter and tags the request logger with it.
// Malformed ids answer 404 like unknown sessions.
func (h *WizardHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.HandleError(c, wizard.ErrSessionNotFound)
		return uuid.Nil, false
	}
	ctx, l := logger.WithSessionID(c.Request.Context(), logger.GetGinLogger(c), id.String())
	c.Request = c.Request.WithContext(ctx)
	c.Set(logger.GinLoggerKey, l)
	return id, true
}
