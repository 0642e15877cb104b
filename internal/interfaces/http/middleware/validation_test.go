package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradein/backend/internal/interfaces/http/dto"
)

type testMileageRequest struct {
	Mileage   *int64 `json:"mileage" binding:"required,gte=0"`
	Condition string `json:"condition" binding:"omitempty,oneof=excellent good fair poor"`
}

func bindTestRequest(t *testing.T, body string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	SetupValidator()

	r := gin.New()
	r.Use(RequestID())
	bound := false
	r.POST("/bind", func(c *gin.Context) {
		var req testMileageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		bound = true
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, bound
}

func TestHandleValidationError(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		w, bound := bindTestRequest(t, `{"mileage": 42000, "condition": "good"}`)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, bound)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		w, bound := bindTestRequest(t, `{"mileage": -1, "condition": "mint"}`)
		assert.False(t, bound)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, dto.ErrCodeValidation, body.Code)
		assert.NotEmpty(t, body.RequestID)
		require.Len(t, body.Details, 2)
		assert.Equal(t, "mileage", body.Details[0].Field)
		assert.Equal(t, "Must be greater than or equal to 0", body.Details[0].Message)
		assert.Equal(t, "condition", body.Details[1].Field)
		assert.Equal(t, "Must be one of: excellent good fair poor", body.Details[1].Message)
	})

	t.Run("required field", func(t *testing.T) {
		w, _ := bindTestRequest(t, `{}`)

		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Details, 1)
		assert.Equal(t, "This field is required", body.Details[0].Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		w, _ := bindTestRequest(t, `{"mileage":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, dto.ErrCodeInvalidJSON, body.Code)
		assert.Empty(t, body.Details)
	})
}
