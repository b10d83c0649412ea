package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/placement-portal/internal/bulk"
	"github.com/jonathan/placement-portal/internal/jobs"
)

// ErrValidation indicates a malformed path parameter or request body
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a resource addressed by the request path does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation     *ErrValidation
		notFound       *ErrNotFound
		bulkValidation *bulk.ValidationError
		bulkNotFound   *bulk.NotFoundError
		jobValidation  *jobs.ValidationError
		jobNotFound    *jobs.NotFoundError
		fieldErrors    validator.ValidationErrors
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation),
		errors.As(err, &bulkValidation),
		errors.As(err, &jobValidation),
		errors.As(err, &fieldErrors):
		return http.StatusBadRequest
	case errors.As(err, &notFound),
		errors.As(err, &bulkNotFound),
		errors.As(err, &jobNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fromValidator reports the first failed field of a request struct.
func fromValidator(err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return &ErrValidation{Field: strings.ToLower(fe.Field()), Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}
