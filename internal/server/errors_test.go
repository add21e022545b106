package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/profile-importer/internal/extraction"
	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/notion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ErrValidation{Field: "url", Message: "required"}, http.StatusBadRequest},
		{"empty content", fmt.Errorf("analyze: %w", extraction.ErrEmptyContent), http.StatusBadRequest},
		{"duplicate", fmt.Errorf("%w: exists", notion.ErrDuplicate), http.StatusConflict},
		{"missing api key", extraction.ErrMissingAPIKey, http.StatusPreconditionFailed},
		{"notion not configured", notion.ErrNotConfigured, http.StatusPreconditionFailed},
		{"notion unauthorized", notion.ErrUnauthorized, http.StatusBadGateway},
		{"invalid database", notion.ErrInvalidDatabase, http.StatusBadGateway},
		{"notion save failed", fmt.Errorf("%w: %w", notion.ErrSaveFailed, &notion.APIError{Status: http.StatusInternalServerError}), http.StatusBadGateway},
		{"duplicate check failed", fmt.Errorf("%w: duplicate check failed: %w", notion.ErrSaveFailed, &notion.APIError{Status: http.StatusBadRequest}), http.StatusBadGateway},
		{"save timed out", fmt.Errorf("%w: %w", notion.ErrSaveFailed, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"analysis failed", extraction.ErrAnalysisFailed, http.StatusBadGateway},
		{"response format", extraction.ErrResponseFormat, http.StatusBadGateway},
		{"fetch", &fetch.Error{URL: "https://x", Message: "status 500"}, http.StatusBadGateway},
		{"deadline", fmt.Errorf("save: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	v := validator.New()
	err := validationError(v.Struct(&ExtractRequest{}))

	var verr *ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Content", verr.Field)
	assert.Equal(t, "validation error: Content - required", err.Error())

	err = validationError(errors.New("odd"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "request", verr.Field)
}
