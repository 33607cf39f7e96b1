// Package render turns an explanation result into displayable image slots,
// following the rendering mode registered for its method.
package render

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
)

// View owns the image slots of one rendered explanation.
// Toggle mode uses the primary slot only; blend mode shows the overlay in the
// primary slot with the heatmap layered above it.
type View struct {
	method methods.Method
	result remote.ExplanationResult
	token  string

	primary *images.Slot
	layer   *images.Slot

	// toggling serialises toggle-mode loads so the primary slot always ends
	// on the image the heatmap flag names. Acquired before mu.
	toggling sync.Mutex

	mu      sync.Mutex
	heatmap bool
	opacity int
}

// New validates result against its method's rendering mode and prepares empty slots.
// Call Resolve to load images.
func New(manager *images.Manager, result remote.ExplanationResult, token string) (*View, error) {
	m, ok := methods.Lookup(result.Method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", methods.ErrUnknownMethod, result.Method)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	v := &View{
		method:  m,
		result:  result,
		token:   token,
		primary: manager.NewSlot(),
	}

	switch m.Mode {
	case methods.ModeBlend:
		v.layer = manager.NewSlot()
		v.opacity = methods.DefaultOpacity
	case methods.ModeToggle:
		v.heatmap = result.OverlayImageID == ""
	}

	return v, nil
}

// Method returns the catalog entry of the rendered explanation.
func (v *View) Method() methods.Method {
	return v.method
}

// Result returns the explanation being rendered.
func (v *View) Result() remote.ExplanationResult {
	return v.result
}

// Resolve loads every image the current presentation needs. Blend mode loads
// both layers concurrently.
func (v *View) Resolve(ctx context.Context) {
	if v.method.Mode == methods.ModeBlend {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			v.primary.Load(ctx, v.result.OverlayImageID, v.token)
			return nil
		})
		g.Go(func() error {
			v.layer.Load(ctx, v.result.HeatmapImageID, v.token)
			return nil
		})
		g.Wait()
		return
	}

	v.toggling.Lock()
	defer v.toggling.Unlock()

	v.mu.Lock()
	id := v.currentID()
	v.mu.Unlock()

	v.primary.Load(ctx, id, v.token)
}

// ShowHeatmap switches a toggle-mode view between its overlay and heatmap image,
// releasing the image it replaces.
func (v *View) ShowHeatmap(ctx context.Context, on bool) error {
	if v.method.Mode != methods.ModeToggle {
		return ErrNotToggle
	}
	if v.result.OverlayImageID == "" || v.result.HeatmapImageID == "" {
		return ErrToggleUnavailable
	}

	v.toggling.Lock()
	defer v.toggling.Unlock()

	v.mu.Lock()
	if v.heatmap == on {
		v.mu.Unlock()
		return nil
	}
	v.heatmap = on
	id := v.currentID()
	v.mu.Unlock()

	v.primary.Load(ctx, id, v.token)
	return nil
}

// SetOpacity sets the heatmap layer opacity of a blend-mode view, in percent.
func (v *View) SetOpacity(opacity int) error {
	if v.method.Mode != methods.ModeBlend {
		return ErrNotBlend
	}
	if opacity < methods.MinOpacity || opacity > methods.MaxOpacity {
		return fmt.Errorf("%w: %d", ErrInvalidOpacity, opacity)
	}

	v.mu.Lock()
	v.opacity = opacity
	v.mu.Unlock()
	return nil
}

// Close releases every slot. Loads still in flight are released when they complete.
func (v *View) Close() {
	v.primary.Close()
	if v.layer != nil {
		v.layer.Close()
	}
}

// Snapshot is the view model of a rendered explanation.
type Snapshot struct {
	Method         methods.ID        `json:"method"`
	Name           string            `json:"name"`
	Mode           methods.Mode      `json:"mode"`
	Anchor         string            `json:"anchor"`
	PredictedClass string            `json:"predicted_class,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
	CanToggle      bool              `json:"can_toggle,omitempty"`
	ShowingHeatmap bool              `json:"showing_heatmap,omitempty"`
	Opacity        int               `json:"opacity,omitempty"`
	Image          images.SlotState  `json:"image"`
	Layer          *images.SlotState `json:"layer,omitempty"`
}

// Snapshot returns the current view model.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		Method:         v.method.ID,
		Name:           v.method.Name,
		Mode:           v.method.Mode,
		Anchor:         v.method.Anchor(),
		PredictedClass: v.result.PredictedClass,
		Confidence:     v.result.Confidence(),
		Image:          v.primary.State(),
	}

	switch v.method.Mode {
	case methods.ModeBlend:
		layer := v.layer.State()
		s.Layer = &layer
		s.Opacity = v.opacity
	case methods.ModeToggle:
		s.CanToggle = v.result.OverlayImageID != "" && v.result.HeatmapImageID != ""
		s.ShowingHeatmap = v.heatmap
	}

	return s
}

func (v *View) currentID() string {
	if v.heatmap {
		return v.result.HeatmapImageID
	}
	return v.result.OverlayImageID
}
