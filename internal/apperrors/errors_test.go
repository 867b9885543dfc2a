package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{DateConflict, http.StatusConflict},
		{DuplicatePayment, http.StatusConflict},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{AmountMismatch, http.StatusUnprocessableEntity},
		{InvalidMethod, http.StatusUnprocessableEntity},
		{InvalidRange, http.StatusUnprocessableEntity},
		{ExternalTimeout, http.StatusGatewayTimeout},
		{Busy, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create booking: %w", New(KindDateConflict, "conflicts with booking %d", 7))

	assert.True(t, errors.Is(err, DateConflict))
	assert.False(t, errors.Is(err, DuplicatePayment))
	assert.Equal(t, KindDateConflict, KindOf(err))
	assert.Equal(t, "conflicts with booking 7", Message(err))
	assert.Equal(t, "DATE_CONFLICT", KindOf(err).Code())
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("pq: connection refused")))
	assert.Equal(t, "internal server error", Message(Wrap(KindInternal, errors.New("x"), "db down")))
}
