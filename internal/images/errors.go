package images

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates no stored image exists for an id.
	ErrNotFound = errors.New("image not found")
	// ErrBlobNotFound indicates a handle that was revoked or never issued.
	ErrBlobNotFound = errors.New("image handle not found")
	// ErrInvalidSource indicates an unsupported source setting.
	ErrInvalidSource = errors.New("invalid image source")
)

// MapHTTPStatus maps image errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBlobNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
