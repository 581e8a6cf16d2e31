package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewConflict("dup", nil), "CONFLICT", http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("create: %w", NewNotFound("draft", nil)), "NOT_FOUND", http.StatusNotFound},
		{"no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"plain error", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
		{"upstream", NewUpstreamError("Error parsing response", errors.New("eof")), "UPSTREAM_ERROR", http.StatusBadGateway},
		{"configuration", NewConfigurationError("missing subdomain"), "CONFIGURATION_ERROR", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestNewFieldErrorsKeepsOrder(t *testing.T) {
	err := NewFieldErrors([]string{"Xcode is required", "Program Name is required"})
	de := ToDomainError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, de.HTTPStatus)
	assert.Equal(t, []string{"Xcode is required", "Program Name is required"}, de.Details["errors"])
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewUpstreamError("company lookup failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "company lookup failed")
}

func TestMapErrorNil(t *testing.T) {
	require.NoError(t, MapError(nil))

	err := MapError(errors.New("boom"))
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
}
