package remote

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/JaimeStill/dermis/internal/methods"
)

const (
	probabilityTolerance = 0.02
	confidenceTolerance  = 0.001
)

// Image is a raw image payload submitted for classification or explanation.
type Image struct {
	Data        []byte `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Empty reports whether the image carries no data.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// ClassificationResult is the successful outcome of a classify call.
type ClassificationResult struct {
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
	HistoryID      string             `json:"history_id,omitempty"`
}

// Validate checks that the probabilities sum to one and agree with the confidence.
func (c *ClassificationResult) Validate() error {
	if c.PredictedClass == "" {
		return fmt.Errorf("%w: missing predicted_class", ErrInvalidResponse)
	}
	if len(c.Probabilities) == 0 {
		return nil
	}

	var sum float64
	for _, p := range c.Probabilities {
		sum += p
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("%w: probabilities sum to %.4f", ErrInvalidResponse, sum)
	}

	if p, ok := c.Probabilities[c.PredictedClass]; ok && math.Abs(p-c.Confidence) > confidenceTolerance {
		return fmt.Errorf(
			"%w: confidence %.4f disagrees with probability %.4f of %s",
			ErrInvalidResponse, c.Confidence, p, c.PredictedClass,
		)
	}

	return nil
}

// Probability is one class/probability pair.
type Probability struct {
	Class string  `json:"class"`
	Value float64 `json:"value"`
}

// Ranked returns the class probabilities ordered from most to least likely.
func Ranked(probabilities map[string]float64) []Probability {
	out := make([]Probability, 0, len(probabilities))
	for class, v := range probabilities {
		out = append(out, Probability{Class: class, Value: v})
	}
	slices.SortFunc(out, func(a, b Probability) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Class, b.Class)
	})
	return out
}

// ExplanationRequest asks the remote service to explain a classification.
type ExplanationRequest struct {
	Method    methods.ID
	Image     Image
	HistoryID string
}

// ExplanationResult carries the image identifiers produced by one explanation method.
type ExplanationResult struct {
	Method                 methods.ID `json:"method"`
	OverlayImageID         string     `json:"overlay_image_id,omitempty"`
	HeatmapImageID         string     `json:"heatmap_image_id,omitempty"`
	PredictedClass         string     `json:"predicted_class,omitempty"`
	PredictedProbabilities []float64  `json:"predicted_probabilities,omitempty"`
}

// Validate requires at least one image, and both images for blend-mode methods.
func (e *ExplanationResult) Validate() error {
	mode, err := methods.ModeOf(e.Method)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if e.OverlayImageID == "" && e.HeatmapImageID == "" {
		return fmt.Errorf("%w: explanation %s has no images", ErrInvalidResponse, e.Method)
	}
	if mode == methods.ModeBlend && (e.OverlayImageID == "" || e.HeatmapImageID == "") {
		return fmt.Errorf("%w: blend explanation %s requires overlay and heatmap", ErrInvalidResponse, e.Method)
	}
	return nil
}

// Confidence returns the highest predicted probability, or zero when none were reported.
func (e *ExplanationResult) Confidence() float64 {
	if len(e.PredictedProbabilities) == 0 {
		return 0
	}
	return slices.Max(e.PredictedProbabilities)
}

// HistorySummary is one row of the user's stored sessions.
type HistorySummary struct {
	ID             string             `json:"id"`
	ImageID        string             `json:"image_id"`
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// HistoryRecord is a stored session with every explanation computed for it.
type HistoryRecord struct {
	HistorySummary
	Explanations []ExplanationResult `json:"explanations"`
}
