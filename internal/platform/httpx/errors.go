// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/atelier-ops/atelier/internal/lifecycle"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unrecognised errors collapse to a bare 500.
func RespondError(w http.ResponseWriter, err error) {
	var (
		parseErr      *lifecycle.ParseError
		reconcileErr  *lifecycle.ReconciliationError
		transitionErr *lifecycle.TransitionError
		fieldErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &parseErr):
		Problem(w, http.StatusBadRequest, "Invalid Date", parseErr.Error())
	case errors.As(err, &reconcileErr):
		Problem(w, http.StatusUnprocessableEntity, "Ledger Integrity", reconcileErr.Error())
	case errors.As(err, &transitionErr):
		Problem(w, http.StatusConflict, "Invalid Transition", transitionErr.Error())
	case errors.As(err, &fieldErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
