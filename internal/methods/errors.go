package methods

import (
	"errors"
	"net/http"
)

// ErrUnknownMethod indicates an identifier outside the catalog.
var ErrUnknownMethod = errors.New("unknown explanation method")

// MapHTTPStatus maps method registry errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnknownMethod) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
