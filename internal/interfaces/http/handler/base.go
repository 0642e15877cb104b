// Package handler holds the gin handlers of the trade-in API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradein/backend/internal/domain/shared"
	"github.com/tradein/backend/internal/domain/valuation"
	"github.com/tradein/backend/internal/domain/wizard"
	"github.com/tradein/backend/internal/infrastructure/logger"
	"github.com/tradein/backend/internal/interfaces/http/dto"
	"github.com/tradein/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends data as the raw 200 response body
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError translates service errors into the uniform error body.
// Provider failures are logged with their full detail; clients only see
// the public message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	requestID := middleware.GetRequestID(c)

	var valErr *valuation.Error
	if errors.As(err, &valErr) {
		status := valuation.HTTPStatus(err)
		if valErr.Kind != valuation.KindValidation && valErr.Kind != valuation.KindNoMatch {
			logger.GetGinLogger(c).Warn("Valuation request failed",
				zap.String("kind", string(valErr.Kind)),
				zap.Int("provider_status", valErr.StatusCode),
				zap.Error(err),
			)
		}
		c.JSON(status, dto.NewErrorResponse(dto.ValuationErrorCode(valErr.Kind), valuation.PublicMessage(err), requestID))
		return
	}

	var stepErr *wizard.ValidationError
	if errors.As(err, &stepErr) {
		details := make([]dto.FieldDetail, len(stepErr.Fields))
		for i, f := range stepErr.Fields {
			details[i] = dto.FieldDetail{Field: f.Field, Message: f.Message}
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(stepErr.Error(), requestID, details))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, domainErr.Message, requestID))
		return
	}

	logger.GetGinLogger(c).Error("Unhandled handler error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}
