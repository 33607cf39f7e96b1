package diagnostic

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/render"
)

// Domain errors for diagnostic sessions.
var (
	ErrValidation         = errors.New("an image must be selected before submitting")
	ErrInvalidTransition  = errors.New("action not available in the current step")
	ErrExplanationPending = errors.New("another explanation is still being generated")
	ErrNotViewing         = errors.New("no explanation is being viewed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidImage       = errors.New("file is not an image")
	ErrImageTooLarge      = errors.New("image exceeds maximum upload size")
	ErrInvalidRequest     = errors.New("invalid request body")
)

// MapHTTPStatus maps diagnostic domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidImage), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrExplanationPending),
		errors.Is(err, ErrNotViewing):
		return http.StatusConflict
	case errors.Is(err, methods.ErrUnknownMethod):
		return methods.MapHTTPStatus(err)
	}
	if status := render.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusInternalServerError
}
