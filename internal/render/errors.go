package render

import (
	"errors"
	"net/http"
)

var (
	ErrNotToggle         = errors.New("method does not use toggle rendering")
	ErrNotBlend          = errors.New("method does not use blend rendering")
	ErrToggleUnavailable = errors.New("explanation lacks an overlay or heatmap to toggle")
	ErrInvalidOpacity    = errors.New("opacity out of range")
)

// MapHTTPStatus maps rendering errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidOpacity):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotToggle), errors.Is(err, ErrNotBlend), errors.Is(err, ErrToggleUnavailable):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
