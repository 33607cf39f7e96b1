package diagnostic

import (
	"slices"

	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/internal/render"
)

// Step names a position in the diagnostic workflow.
type Step string

const (
	StepUpload               Step = "upload"
	StepAnalyzing            Step = "analyzing"
	StepAnalysisError        Step = "analysis_error"
	StepAnalysisResult       Step = "analysis_result"
	StepExplanationSelection Step = "explanation_selection"
	StepExplanationView      Step = "explanation_view"
)

// edges lists every step reachable from a step by a user action or a call
// outcome. Reset to StepUpload is always allowed and not listed.
var edges = map[Step][]Step{
	StepUpload:               {StepAnalyzing},
	StepAnalyzing:            {StepAnalysisError, StepAnalysisResult},
	StepAnalysisError:        {StepUpload},
	StepAnalysisResult:       {StepExplanationSelection, StepUpload},
	StepExplanationSelection: {StepExplanationView, StepAnalysisResult},
	StepExplanationView:      {StepExplanationSelection},
}

// CanTransition reports whether the workflow may move from one step to another.
func CanTransition(from, to Step) bool {
	if to == StepUpload {
		return true
	}
	return slices.Contains(edges[from], to)
}

// State is the data held by a session at one step. The concrete types are
// Upload, Analyzing, AnalysisError, AnalysisResult, ExplanationSelection and
// ExplanationView.
type State interface {
	Step() Step
	state()
}

// Upload waits for an image. Image is nil until one is selected.
type Upload struct {
	Image *remote.Image
}

// Analyzing holds the submitted image while classification is outstanding.
type Analyzing struct {
	Image remote.Image
}

// AnalysisError records why classification produced no usable result.
type AnalysisError struct {
	Image   remote.Image
	Failure Failure
}

// AnalysisResult holds a successful classification.
type AnalysisResult struct {
	Image          remote.Image
	Classification remote.ClassificationResult
}

// ExplanationSelection lets the user pick an explanation method. Pending is the
// method being generated, if any; Err is the outcome of the last failed attempt.
type ExplanationSelection struct {
	Image          remote.Image
	Classification remote.ClassificationResult
	Pending        methods.ID
	Err            *ExplanationFailure
}

// ExplanationView shows one rendered explanation.
type ExplanationView struct {
	Image          remote.Image
	Classification remote.ClassificationResult
	Explanation    remote.ExplanationResult

	view *render.View
}

// ExplanationFailure is the error attached to the selection step after a
// failed explanation request.
type ExplanationFailure struct {
	Method methods.ID `json:"method"`
	Key    string     `json:"key"`
	Detail string     `json:"detail,omitempty"`
}

func (Upload) Step() Step               { return StepUpload }
func (Analyzing) Step() Step            { return StepAnalyzing }
func (AnalysisError) Step() Step        { return StepAnalysisError }
func (AnalysisResult) Step() Step       { return StepAnalysisResult }
func (ExplanationSelection) Step() Step { return StepExplanationSelection }
func (ExplanationView) Step() Step      { return StepExplanationView }

func (Upload) state()               {}
func (Analyzing) state()            {}
func (AnalysisError) state()        {}
func (AnalysisResult) state()       {}
func (ExplanationSelection) state() {}
func (ExplanationView) state()      {}
