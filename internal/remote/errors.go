package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// LowConfidenceMarker is the phrase the classifier puts in a 400 detail when it
// refuses to commit to a class.
const LowConfidenceMarker = "Unable to classify the image with sufficient confidence"

// Transport failure keys, following the status mapping of the remote API.
const (
	KeyNetworkError = "network_error"
	KeyBadRequest   = "bad_request"
	KeyUnauthorized = "unauthorized"
	KeyForbidden    = "forbidden"
	KeyNotFound     = "not_found"
	KeyServerError  = "server_error"
	KeyUnknownError = "unknown_error"
)

var (
	// ErrNotFound indicates the remote service has no resource with the requested id.
	ErrNotFound = errors.New("remote resource not found")
	// ErrInvalidResponse indicates a response body that violates the API contract.
	ErrInvalidResponse = errors.New("invalid remote response")
	// ErrEmptyImage indicates a request without image data.
	ErrEmptyImage = errors.New("image data required")
)

// LowConfidenceError is returned by Classify when the model cannot commit to a class.
// Message is the raw detail text, which embeds the best guess and its confidence.
type LowConfidenceError struct {
	Message string
}

func (e *LowConfidenceError) Error() string {
	return e.Message
}

// TransportError is any non-success outcome of a remote call other than low confidence.
// Status is zero when no response was received.
type TransportError struct {
	Status int
	Key    string
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	msg := e.Key
	if e.Detail != "" {
		msg = e.Detail
	}
	if e.Status == 0 {
		return fmt.Sprintf("remote %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("remote %d: %s", e.Status, msg)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text: the 400 detail when present, otherwise the key.
func (e *TransportError) Message() string {
	if e.Status == http.StatusBadRequest && e.Detail != "" {
		return e.Detail
	}
	return e.Key
}

// classifyStatus turns a non-2xx response into the matching error value.
func classifyStatus(status int, detail string) error {
	switch status {
	case http.StatusBadRequest:
		if strings.Contains(detail, LowConfidenceMarker) {
			return &LowConfidenceError{Message: detail}
		}
		return &TransportError{Status: status, Key: KeyBadRequest, Detail: detail}
	case http.StatusUnauthorized:
		return &TransportError{Status: status, Key: KeyUnauthorized, Detail: detail}
	case http.StatusForbidden:
		return &TransportError{Status: status, Key: KeyForbidden, Detail: detail}
	case http.StatusNotFound:
		return &TransportError{Status: status, Key: KeyNotFound, Detail: detail, Err: ErrNotFound}
	case http.StatusInternalServerError:
		return &TransportError{Status: status, Key: KeyServerError, Detail: detail}
	default:
		return &TransportError{Status: status, Key: KeyUnknownError, Detail: detail}
	}
}

// MapHTTPStatus maps remote errors to the status the BFF should answer with.
func MapHTTPStatus(err error) int {
	var transport *TransportError
	if errors.As(err, &transport) {
		switch transport.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusBadRequest:
			return transport.Status
		}
		return http.StatusBadGateway
	}

	var low *LowConfidenceError
	if errors.As(err, &low) {
		return http.StatusUnprocessableEntity
	}

	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidResponse) {
		return http.StatusBadGateway
	}
	if errors.Is(err, ErrEmptyImage) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
