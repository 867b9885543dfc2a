package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperrors"
)

func TestErrorMapsKindToStatusAndCode(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.DateConflict, http.StatusConflict, "DATE_CONFLICT"},
		{apperrors.DuplicatePayment, http.StatusConflict, "DUPLICATE_PAYMENT"},
		{apperrors.InvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{apperrors.PropertyUnavailable, http.StatusConflict, "PROPERTY_UNAVAILABLE"},
		{apperrors.Forbidden, http.StatusForbidden, "FORBIDDEN"},
		{apperrors.NotFound, http.StatusNotFound, "NOT_FOUND"},
		{apperrors.AmountMismatch, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH"},
		{apperrors.InvalidMethod, http.StatusUnprocessableEntity, "INVALID_METHOD"},
		{apperrors.InvalidRange, http.StatusUnprocessableEntity, "INVALID_RANGE"},
		{apperrors.Validation, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{apperrors.ExternalTimeout, http.StatusGatewayTimeout, "EXTERNAL_TIMEOUT"},
		{fmt.Errorf("create booking: %w", apperrors.DateConflict), http.StatusConflict, "DATE_CONFLICT"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("pq: connection refused to 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body.Error.Code)
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorMessage(rec, apperrors.KindNotFound, "route not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"route not found"}}`, rec.Body.String())
}

func TestJSONWithoutBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
