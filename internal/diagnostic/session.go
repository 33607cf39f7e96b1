// Package diagnostic drives one upload-to-explanation workflow per session:
// image selection, classification, method selection and explanation display.
package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/internal/render"
)

// Session owns the state of one diagnostic workflow. Remote calls run without
// the lock held; their outcome is applied only if the session has not moved on
// in the meantime.
type Session struct {
	id     uuid.UUID
	token  string
	client remote.Client
	images *images.Manager
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	epoch    uint64
	inflight context.CancelFunc
	closed   bool
}

// NewSession creates a session in the upload step. token is the bearer token
// of the owner, empty for anonymous use.
func NewSession(client remote.Client, manager *images.Manager, token string, logger *slog.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:     id,
		token:  token,
		client: client,
		images: manager,
		logger: logger.With("session", id),
		state:  Upload{},
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// OwnedBy reports whether token is the one the session was opened with.
func (s *Session) OwnedBy(token string) bool {
	return s.token == token
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectImage stores img as the image to classify. The content is sniffed and
// must be an image regardless of the declared content type.
func (s *Session) SelectImage(img remote.Image) error {
	if img.Empty() {
		return ErrInvalidImage
	}

	detected := mimetype.Detect(img.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return fmt.Errorf("%w: detected %s", ErrInvalidImage, detected.String())
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		img.ContentType = detected.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if _, ok := s.state.(Upload); !ok {
		return s.invalid("select image")
	}

	s.state = Upload{Image: &img}
	return nil
}

// Submit classifies the selected image. Low-confidence and transport failures
// move the session to the analysis error step and are not returned.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	up, ok := s.state.(Upload)
	if !ok {
		s.mu.Unlock()
		return s.invalid("submit")
	}
	if up.Image == nil || up.Image.Empty() {
		s.mu.Unlock()
		return ErrValidation
	}
	img := *up.Image
	s.advance(Analyzing{Image: img})
	ctx, epoch := s.begin(ctx)
	s.mu.Unlock()

	result, err := s.client.Classify(ctx, img, s.token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(epoch) {
		s.logger.Info("classification outcome discarded")
		return nil
	}
	s.inflight = nil

	if err != nil {
		failure := failureFrom(err)
		s.logger.Warn("classification failed", "kind", failure.Kind, "error", err)
		s.advance(AnalysisError{Image: img, Failure: failure})
		return nil
	}

	s.advance(AnalysisResult{Image: img, Classification: *result})
	return nil
}

// Proceed moves from the analysis result to method selection.
func (s *Session) Proceed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	res, ok := s.state.(AnalysisResult)
	if !ok {
		return s.invalid("proceed")
	}

	s.advance(ExplanationSelection{Image: res.Image, Classification: res.Classification})
	return nil
}

// Retry discards a failed analysis and returns to upload with the same image.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	failed, ok := s.state.(AnalysisError)
	if !ok {
		return s.invalid("retry")
	}

	img := failed.Image
	s.advance(Upload{Image: &img})
	return nil
}

// SelectMethod requests an explanation with the given method and renders it.
// Selecting the method already being generated is a no-op; selecting another
// one while a request is outstanding returns ErrExplanationPending. A failed
// request leaves the session in method selection with the failure attached.
func (s *Session) SelectMethod(ctx context.Context, id methods.ID) error {
	m, ok := methods.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", methods.ErrUnknownMethod, id)
	}

	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	sel, ok := s.state.(ExplanationSelection)
	if !ok {
		s.mu.Unlock()
		return s.invalid("select method")
	}
	if sel.Pending != "" {
		s.mu.Unlock()
		if sel.Pending == m.ID {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrExplanationPending, sel.Pending)
	}

	sel.Pending = m.ID
	sel.Err = nil
	s.state = sel
	ctx, epoch := s.begin(ctx)
	s.mu.Unlock()

	view, err := s.explain(ctx, m, sel)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(epoch) {
		if view != nil {
			view.Close()
		}
		s.logger.Info("explanation outcome discarded", "method", m.ID)
		return nil
	}
	s.inflight = nil
	sel.Pending = ""

	if err != nil {
		s.logger.Warn("explanation failed", "method", m.ID, "error", err)
		sel.Err = explanationFailure(m.ID, err)
		s.state = sel
		return nil
	}

	s.advance(ExplanationView{
		Image:          sel.Image,
		Classification: sel.Classification,
		Explanation:    view.Result(),
		view:           view,
	})
	return nil
}

// Back steps to the previous screen without discarding the classification.
// Not available from upload or while analyzing.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}

	switch st := s.state.(type) {
	case AnalysisError:
		img := st.Image
		s.advance(Upload{Image: &img})
	case AnalysisResult:
		img := st.Image
		s.advance(Upload{Image: &img})
	case ExplanationSelection:
		s.advance(AnalysisResult{Image: st.Image, Classification: st.Classification})
	case ExplanationView:
		s.advance(ExplanationSelection{Image: st.Image, Classification: st.Classification})
	default:
		return s.invalid("back")
	}
	return nil
}

// Reset returns to an empty upload step from any step. Outstanding calls are
// cancelled and their outcomes dropped.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	s.advance(Upload{})
	return nil
}

// ShowHeatmap switches the viewed explanation between overlay and heatmap.
func (s *Session) ShowHeatmap(ctx context.Context, on bool) error {
	view, err := s.view()
	if err != nil {
		return err
	}
	return view.ShowHeatmap(ctx, on)
}

// SetOpacity sets the heatmap opacity of the viewed explanation.
func (s *Session) SetOpacity(opacity int) error {
	view, err := s.view()
	if err != nil {
		return err
	}
	return view.SetOpacity(opacity)
}

// Close cancels outstanding calls and releases every image the session holds.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.advance(Upload{})
	s.closed = true
}

func (s *Session) explain(ctx context.Context, m methods.Method, sel ExplanationSelection) (*render.View, error) {
	result, err := s.client.Explain(ctx, remote.ExplanationRequest{
		Method:    m.ID,
		Image:     sel.Image,
		HistoryID: sel.Classification.HistoryID,
	}, s.token)
	if err != nil {
		return nil, err
	}

	view, err := render.New(s.images, *result, s.token)
	if err != nil {
		return nil, err
	}
	view.Resolve(ctx)
	return view, nil
}

func (s *Session) view() (*render.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return nil, err
	}
	v, ok := s.state.(ExplanationView)
	if !ok {
		return nil, ErrNotViewing
	}
	return v.view, nil
}

// advance moves to next, cancelling any outstanding call and releasing the
// rendered explanation being left. Callers hold s.mu.
func (s *Session) advance(next State) {
	from := s.state.Step()
	if !CanTransition(from, next.Step()) {
		panic(fmt.Sprintf("diagnostic: illegal transition %s -> %s", from, next.Step()))
	}

	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	if v, ok := s.state.(ExplanationView); ok && v.view != nil {
		v.view.Close()
	}

	s.epoch++
	s.state = next
	s.logger.Debug("step changed", "from", from, "to", next.Step())
}

// begin registers an outstanding call and returns its context and epoch.
// Callers hold s.mu.
func (s *Session) begin(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.inflight = cancel
	return ctx, s.epoch
}

// current reports whether a call started at epoch may still apply its outcome.
// Callers hold s.mu.
func (s *Session) current(epoch uint64) bool {
	return !s.closed && s.epoch == epoch
}

func (s *Session) usable() error {
	if s.closed {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Session) invalid(action string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, s.state.Step())
}

func explanationFailure(method methods.ID, err error) *ExplanationFailure {
	f := &ExplanationFailure{Method: method, Key: remote.KeyUnknownError}

	var transport *remote.TransportError
	if errors.As(err, &transport) {
		f.Key = transport.Key
		if transport.Detail != "" {
			f.Detail = transport.Detail
		}
		return f
	}

	f.Detail = err.Error()
	return f
}
