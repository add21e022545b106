package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/profile-importer/internal/extraction"
	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/notion"
	"github.com/jonathan/profile-importer/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// validationError converts validator output into an ErrValidation for the
// first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ErrValidation{Field: verrs[0].Field(), Message: verrs[0].Tag()}
	}
	return &ErrValidation{Field: "request", Message: err.Error()}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		valErr    *ErrValidation
		schemaErr *schemas.ValidationError
		fetchErr  *fetch.Error
	)
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, notion.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, extraction.ErrMissingAPIKey), errors.Is(err, notion.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, extraction.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, notion.ErrUnauthorized), errors.Is(err, notion.ErrInvalidDatabase),
		errors.Is(err, notion.ErrSaveFailed),
		errors.Is(err, extraction.ErrAnalysisFailed), errors.Is(err, extraction.ErrResponseFormat),
		errors.As(err, &schemaErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
