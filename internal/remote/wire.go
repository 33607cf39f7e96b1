package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/dermis/internal/methods"
)

// flexString accepts a JSON string or number, since stored ids arrive as either.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// flexTime accepts RFC 3339 timestamps as well as zone-less ones, read as UTC.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = flexTime{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

type classifyResponse struct {
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
	HistoryID      flexString         `json:"history_id"`
}

func (r *classifyResponse) result() *ClassificationResult {
	return &ClassificationResult{
		PredictedClass: r.PredictedClass,
		Confidence:     r.Confidence,
		Probabilities:  r.Probabilities,
		HistoryID:      string(r.HistoryID),
	}
}

type explanationEntry struct {
	Method         string     `json:"method"`
	OverlayImageID flexString `json:"overlay_image_id"`
	HeatmapImageID flexString `json:"heatmap_image_id"`
}

func (e *explanationEntry) result() (ExplanationResult, error) {
	id, err := methods.Parse(e.Method)
	if err != nil {
		return ExplanationResult{}, fmt.Errorf("%w: method %q: %w", ErrInvalidResponse, e.Method, err)
	}
	return ExplanationResult{
		Method:         id,
		OverlayImageID: string(e.OverlayImageID),
		HeatmapImageID: string(e.HeatmapImageID),
	}, nil
}

type explainResponse struct {
	PredictedClass string    `json:"predicted_class"`
	PredictedProbs []float64 `json:"predicted_probs"`
	Explanations   struct {
		Explanations []explanationEntry `json:"explanations"`
	} `json:"explanations"`
}

// result uses the first explanation entry; the service returns one per request.
func (r *explainResponse) result() (*ExplanationResult, error) {
	if len(r.Explanations.Explanations) == 0 {
		return nil, fmt.Errorf("%w: no explanations in response", ErrInvalidResponse)
	}

	res, err := r.Explanations.Explanations[0].result()
	if err != nil {
		return nil, err
	}

	res.PredictedClass = r.PredictedClass
	res.PredictedProbabilities = r.PredictedProbs

	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

type historyEntry struct {
	ID             flexString         `json:"id"`
	ImageID        flexString         `json:"image_id"`
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
	Timestamp      flexTime           `json:"timestamp"`
}

func (h *historyEntry) summary() HistorySummary {
	return HistorySummary{
		ID:             string(h.ID),
		ImageID:        string(h.ImageID),
		PredictedClass: h.PredictedClass,
		Confidence:     h.Confidence,
		Probabilities:  h.Probabilities,
		Timestamp:      time.Time(h.Timestamp),
	}
}

type historyDetail struct {
	historyEntry
	Explanations json.RawMessage `json:"explanations"`
}

// entries reads the explanations field, which the service nests one level deep.
// Only the first group is meaningful. A flat list is accepted as well.
func (h *historyDetail) entries() ([]explanationEntry, error) {
	raw := bytes.TrimSpace(h.Explanations)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var nested [][]explanationEntry
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}

	var flat []explanationEntry
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("%w: explanations: %w", ErrInvalidResponse, err)
	}
	return flat, nil
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detailText extracts the detail message from an error body. Non-string details
// (such as validation error lists) are returned as raw JSON.
func detailText(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}
	return string(eb.Detail)
}
