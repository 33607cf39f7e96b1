package diagnostic

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/JaimeStill/dermis/internal/remote"
)

// UnknownClass is reported when a failure message names no class.
const UnknownClass = "unknown"

// FailureKind tells a low-confidence refusal apart from a failed call.
type FailureKind string

const (
	FailureLowConfidence FailureKind = "low_confidence"
	FailureTransport     FailureKind = "transport"
)

var (
	confidencePattern = regexp.MustCompile(`confidence=([\d.]+)`)
	classPattern      = regexp.MustCompile(`\(\s*confidence=[\d.]+\s*\(([^)]+)\)\)`)
)

// Failure is the parsed outcome of an unsuccessful analysis.
type Failure struct {
	Kind           FailureKind `json:"kind"`
	Message        string      `json:"message"`
	Confidence     float64     `json:"confidence"`
	PredictedClass string      `json:"predicted_class"`
	// Key is the transport error key, empty for low-confidence failures.
	Key string `json:"key,omitempty"`
}

// ParseFailure extracts the best-guess confidence and class from a low-confidence
// message. Values that cannot be found default to 0 and UnknownClass; a message
// without the low-confidence marker is kept verbatim with the defaults.
func ParseFailure(message string) Failure {
	f := Failure{
		Kind:           FailureTransport,
		Message:        message,
		PredictedClass: UnknownClass,
	}

	if !strings.Contains(message, remote.LowConfidenceMarker) {
		return f
	}
	f.Kind = FailureLowConfidence

	if m := confidencePattern.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			f.Confidence = v
		}
	}
	if m := classPattern.FindStringSubmatch(message); m != nil {
		f.PredictedClass = m[1]
	}

	return f
}

// failureFrom converts a classify error into the failure shown to the user.
func failureFrom(err error) Failure {
	var low *remote.LowConfidenceError
	if errors.As(err, &low) {
		return ParseFailure(low.Message)
	}

	var transport *remote.TransportError
	if errors.As(err, &transport) {
		f := ParseFailure(transport.Message())
		f.Kind = FailureTransport
		f.Key = transport.Key
		return f
	}

	f := ParseFailure(err.Error())
	f.Kind = FailureTransport
	f.Key = remote.KeyUnknownError
	return f
}
