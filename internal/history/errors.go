package history

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/internal/render"
)

// Domain errors for history operations.
var (
	ErrUnauthenticated    = errors.New("history requires a signed-in user")
	ErrViewNotFound       = errors.New("history view not found")
	ErrMethodNotPresent   = errors.New("no stored explanation for method")
	ErrMethodPresent      = errors.New("explanation already stored for method")
	ErrGenerationInFlight = errors.New("an explanation is already being generated for this record")
	ErrInvalidRequest     = errors.New("invalid request body")
)

// MapHTTPStatus maps history domain errors to appropriate HTTP status codes.
// Remote failures keep the status the remote service reported.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrViewNotFound), errors.Is(err, ErrMethodNotPresent):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodPresent), errors.Is(err, ErrGenerationInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, methods.ErrUnknownMethod):
		return methods.MapHTTPStatus(err)
	case errors.Is(err, render.ErrInvalidOpacity),
		errors.Is(err, render.ErrNotBlend),
		errors.Is(err, render.ErrNotToggle),
		errors.Is(err, render.ErrToggleUnavailable):
		return render.MapHTTPStatus(err)
	}
	return remote.MapHTTPStatus(err)
}
