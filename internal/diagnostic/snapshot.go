package diagnostic

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/internal/render"
)

// Actions a client can take from a step.
const (
	ActionSelectImage = "select_image"
	ActionSubmit      = "submit"
	ActionProceed     = "proceed"
	ActionRetry       = "retry"
	ActionBack        = "back"
	ActionReset       = "reset"
	ActionExplain     = "explain"
	ActionHeatmap     = "heatmap"
	ActionOpacity     = "opacity"
)

// Snapshot is the view model of a session.
type Snapshot struct {
	ID             uuid.UUID             `json:"id"`
	Step           Step                  `json:"step"`
	Authenticated  bool                  `json:"authenticated"`
	Actions        []string              `json:"actions"`
	Image          *ImageInfo            `json:"image,omitempty"`
	Classification *Classification       `json:"classification,omitempty"`
	Failure        *FailureView          `json:"failure,omitempty"`
	Methods        []methods.Description `json:"methods,omitempty"`
	Pending        methods.ID            `json:"pending,omitempty"`
	Waiting        string                `json:"waiting,omitempty"`
	Error          *ExplanationError     `json:"explanation_error,omitempty"`
	Explanation    *render.Snapshot      `json:"explanation,omitempty"`
}

// ImageInfo describes the selected image without its data.
type ImageInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Classification is a successful analysis with probabilities ranked.
type Classification struct {
	PredictedClass string               `json:"predicted_class"`
	Confidence     float64              `json:"confidence"`
	Probabilities  []remote.Probability `json:"probabilities,omitempty"`
	HistoryID      string               `json:"history_id,omitempty"`
}

// FailureView is a failed analysis with its localized notice.
type FailureView struct {
	Failure
	ClassLabel string `json:"class_label"`
	Notice     string `json:"notice"`
}

// ExplanationError is a failed explanation request with its localized notice.
type ExplanationError struct {
	ExplanationFailure
	Notice string `json:"notice"`
}

// Snapshot returns the view model of the session with text resolved through l.
func (s *Session) Snapshot(l locale.Localizer) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		Step:          s.state.Step(),
		Authenticated: s.token != "",
	}

	switch st := s.state.(type) {
	case Upload:
		snap.Actions = []string{ActionSelectImage}
		if st.Image != nil {
			snap.Image = imageInfo(*st.Image)
			snap.Actions = append(snap.Actions, ActionSubmit, ActionReset)
		}
	case Analyzing:
		snap.Image = imageInfo(st.Image)
		snap.Actions = []string{ActionReset}
	case AnalysisError:
		snap.Image = imageInfo(st.Image)
		snap.Failure = failureView(st.Failure, l)
		snap.Actions = []string{ActionRetry, ActionBack, ActionReset}
	case AnalysisResult:
		snap.Image = imageInfo(st.Image)
		snap.Classification = classification(st.Classification)
		snap.Actions = []string{ActionProceed, ActionBack, ActionReset}
	case ExplanationSelection:
		snap.Image = imageInfo(st.Image)
		snap.Classification = classification(st.Classification)
		snap.Methods = methods.DescribeAll(l)
		snap.Pending = st.Pending
		if st.Pending != "" {
			snap.Waiting = l.T("xai_methods.waiting")
		} else {
			snap.Actions = append(snap.Actions, ActionExplain)
		}
		if st.Err != nil {
			snap.Error = &ExplanationError{
				ExplanationFailure: *st.Err,
				Notice:             l.T("xai_methods.request_error"),
			}
		}
		snap.Actions = append(snap.Actions, ActionBack, ActionReset)
	case ExplanationView:
		snap.Image = imageInfo(st.Image)
		snap.Classification = classification(st.Classification)
		snap.Actions = []string{ActionBack, ActionReset}
		if st.view != nil {
			rendered := st.view.Snapshot()
			snap.Explanation = &rendered
			if rendered.CanToggle {
				snap.Actions = append(snap.Actions, ActionHeatmap)
			}
			if rendered.Mode == methods.ModeBlend {
				snap.Actions = append(snap.Actions, ActionOpacity)
			}
		}
	}

	return snap
}

func imageInfo(img remote.Image) *ImageInfo {
	return &ImageInfo{
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Size:        len(img.Data),
	}
}

func classification(c remote.ClassificationResult) *Classification {
	return &Classification{
		PredictedClass: c.PredictedClass,
		Confidence:     c.Confidence,
		Probabilities:  remote.Ranked(c.Probabilities),
		HistoryID:      c.HistoryID,
	}
}

func failureView(f Failure, l locale.Localizer) *FailureView {
	v := &FailureView{Failure: f, ClassLabel: f.PredictedClass}
	if f.PredictedClass == UnknownClass {
		v.ClassLabel = l.T("analysis.unknown_class")
	}
	if f.Kind == FailureLowConfidence {
		v.Notice = l.T("analysis.low_confidence")
		return v
	}
	v.Notice = l.T("errors." + f.Key)
	return v
}
