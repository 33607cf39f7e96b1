package diagnostic_test

import (
	"testing"

	"github.com/JaimeStill/dermis/internal/diagnostic"
)

func TestParseFailure(t *testing.T) {
	tests := []struct {
		name           string
		message        string
		wantKind       diagnostic.FailureKind
		wantConfidence float64
		wantClass      string
	}{
		{
			name:           "confidence and class",
			message:        "Unable to classify the image with sufficient confidence (confidence=0.42 (mel))",
			wantKind:       diagnostic.FailureLowConfidence,
			wantConfidence: 0.42,
			wantClass:      "mel",
		},
		{
			name:           "padded parentheses",
			message:        "Unable to classify the image with sufficient confidence ( confidence=0.3 (basal cell carcinoma))",
			wantKind:       diagnostic.FailureLowConfidence,
			wantConfidence: 0.3,
			wantClass:      "basal cell carcinoma",
		},
		{
			name:           "confidence without class",
			message:        "Unable to classify the image with sufficient confidence; confidence=0.37",
			wantKind:       diagnostic.FailureLowConfidence,
			wantConfidence: 0.37,
			wantClass:      diagnostic.UnknownClass,
		},
		{
			name:           "marker only",
			message:        "Unable to classify the image with sufficient confidence",
			wantKind:       diagnostic.FailureLowConfidence,
			wantConfidence: 0,
			wantClass:      diagnostic.UnknownClass,
		},
		{
			name:           "unrelated message",
			message:        "Server exploded",
			wantKind:       diagnostic.FailureTransport,
			wantConfidence: 0,
			wantClass:      diagnostic.UnknownClass,
		},
		{
			name:           "unrelated message with confidence text",
			message:        "confidence=0.99 (nv)",
			wantKind:       diagnostic.FailureTransport,
			wantConfidence: 0,
			wantClass:      diagnostic.UnknownClass,
		},
		{
			name:           "empty",
			message:        "",
			wantKind:       diagnostic.FailureTransport,
			wantConfidence: 0,
			wantClass:      diagnostic.UnknownClass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diagnostic.ParseFailure(tt.message)

			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.PredictedClass != tt.wantClass {
				t.Errorf("class = %q, want %q", got.PredictedClass, tt.wantClass)
			}
			if got.Message != tt.message {
				t.Errorf("message = %q, want verbatim %q", got.Message, tt.message)
			}
		})
	}
}

func TestParseFailureDeterministic(t *testing.T) {
	msg := "Unable to classify the image with sufficient confidence (confidence=0.42 (mel))"
	first := diagnostic.ParseFailure(msg)
	for range 10 {
		if got := diagnostic.ParseFailure(msg); got != first {
			t.Fatalf("ParseFailure() = %+v, want %+v", got, first)
		}
	}
}
