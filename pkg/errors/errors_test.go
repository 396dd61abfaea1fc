package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", NewValidation("week_number", "week_number must be between 1 and 6"), http.StatusBadRequest},
		{"not found", NewNotFound("protocol", sql.ErrNoRows), http.StatusNotFound},
		{"persistence", NewPersistence("save check-in", fmt.Errorf("connection reset")), http.StatusServiceUnavailable},
		{"unauthorized", Unauthorized(nil), http.StatusUnauthorized},
		{"internal", NewInternal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := NewValidation("energy_level", "energy_level must be between 1 and 10")
	wrapped := fmt.Errorf("upsert check-in: %w", base)

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "energy_level", appErr.Field)
	assert.True(t, Is(wrapped, ErrValidation))
	assert.False(t, Is(wrapped, ErrNotFound))
}

func TestRetryableAndMessage(t *testing.T) {
	err := NewPersistence("link intake", fmt.Errorf("timeout"))
	assert.True(t, err.Retryable())
	assert.Equal(t, "failed to link intake: timeout", err.Error())
	assert.False(t, NewNotFound("patient", nil).Retryable())
	assert.Equal(t, "patient not found", NewNotFound("patient", nil).Error())
}
