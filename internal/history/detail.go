package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/internal/render"
)

// Detail renders one stored record: its source image, one view per stored
// explanation, and generation of the explanations still missing.
type Detail struct {
	id     uuid.UUID
	token  string
	client remote.Client
	images *images.Manager
	active *generations
	logger *slog.Logger

	mu     sync.Mutex
	record remote.HistoryRecord
	image  *images.Slot
	views  map[methods.ID]*render.View
	recon  Reconciliation
	focus  string
	closed bool
}

func openDetail(
	ctx context.Context,
	client remote.Client,
	manager *images.Manager,
	active *generations,
	recordID, token string,
	logger *slog.Logger,
) (*Detail, error) {
	record, err := client.GetHistoryDetail(ctx, recordID, token)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	d := &Detail{
		id:     id,
		token:  token,
		client: client,
		images: manager,
		active: active,
		logger: logger.With("detail", id, "record", record.ID),
		image:  manager.NewSlot(),
		views:  make(map[methods.ID]*render.View),
	}

	stored := record.Explanations[:0:0]
	for _, e := range record.Explanations {
		if _, dup := d.views[e.Method]; dup {
			continue
		}
		v, err := render.New(manager, e, token)
		if err != nil {
			d.logger.Warn("stored explanation skipped", "method", e.Method, "error", err)
			continue
		}
		d.views[e.Method] = v
		stored = append(stored, e)
	}
	record.Explanations = stored
	d.record = *record
	d.recon = Reconcile(&d.record)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.image.Load(gctx, record.ImageID, token)
		return nil
	})
	for _, v := range d.views {
		g.Go(func() error {
			v.Resolve(gctx)
			return nil
		})
	}
	g.Wait()

	return d, nil
}

// ID returns the view identifier.
func (d *Detail) ID() uuid.UUID {
	return d.id
}

// RecordID returns the id of the rendered record.
func (d *Detail) RecordID() string {
	return d.record.ID
}

// OwnedBy reports whether token opened the view.
func (d *Detail) OwnedBy(token string) bool {
	return d.token == token
}

// Reconciliation returns which methods are stored and which are missing.
func (d *Detail) Reconciliation() Reconciliation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recon
}

// Jump focuses the explanation for id and returns its anchor.
func (d *Detail) Jump(id methods.ID) (string, error) {
	m, ok := methods.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", methods.ErrUnknownMethod, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.recon.Has(m.ID) {
		return "", fmt.Errorf("%w: %s", ErrMethodNotPresent, m.ID)
	}
	d.focus = m.Anchor()
	return d.focus, nil
}

// Generate explains the record image with a missing method, stores the result
// against the record and renders it. The new explanation receives focus. Only
// one generation per record runs at a time across every open view.
func (d *Detail) Generate(ctx context.Context, id methods.ID) error {
	m, ok := methods.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", methods.ErrUnknownMethod, id)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrViewNotFound
	}
	if d.recon.Has(m.ID) {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMethodPresent, m.ID)
	}
	recordID, imageID := d.record.ID, d.record.ImageID
	d.mu.Unlock()

	if err := d.active.begin(recordID, m.ID); err != nil {
		return err
	}
	defer d.active.end(recordID)

	view, err := d.generate(ctx, m, recordID, imageID)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.logger.Warn("explanation generation failed", "method", m.ID, "error", err)
		return err
	}
	if d.closed {
		view.Close()
		return ErrViewNotFound
	}

	d.views[m.ID] = view
	d.record.Explanations = append(d.record.Explanations, view.Result())
	d.recon = Reconcile(&d.record)
	d.focus = m.Anchor()

	d.logger.Info("explanation generated", "method", m.ID)
	return nil
}

// ShowHeatmap switches the stored explanation for id between overlay and heatmap.
func (d *Detail) ShowHeatmap(ctx context.Context, id methods.ID, on bool) error {
	v, err := d.view(id)
	if err != nil {
		return err
	}
	return v.ShowHeatmap(ctx, on)
}

// SetOpacity sets the heatmap opacity of the stored explanation for id.
func (d *Detail) SetOpacity(id methods.ID, opacity int) error {
	v, err := d.view(id)
	if err != nil {
		return err
	}
	return v.SetOpacity(opacity)
}

// Close releases the record image and every rendered explanation.
func (d *Detail) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	views := d.views
	d.views = make(map[methods.ID]*render.View)
	d.mu.Unlock()

	d.image.Close()
	for _, v := range views {
		v.Close()
	}
}

func (d *Detail) generate(ctx context.Context, m methods.Method, recordID, imageID string) (*render.View, error) {
	data, contentType, err := d.images.Source().FetchImage(ctx, imageID, d.token)
	if err != nil {
		return nil, fmt.Errorf("fetch record image: %w", err)
	}

	detected := mimetype.Detect(data)
	if contentType == "" {
		contentType = detected.String()
	}

	result, err := d.client.Explain(ctx, remote.ExplanationRequest{
		Method: m.ID,
		Image: remote.Image{
			Data:        data,
			Filename:    imageID + detected.Extension(),
			ContentType: contentType,
		},
		HistoryID: recordID,
	}, d.token)
	if err != nil {
		return nil, err
	}

	view, err := render.New(d.images, *result, d.token)
	if err != nil {
		return nil, err
	}
	view.Resolve(ctx)
	return view, nil
}

func (d *Detail) view(id methods.ID) (*render.View, error) {
	m, ok := methods.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", methods.ErrUnknownMethod, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrViewNotFound
	}
	v, ok := d.views[m.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotPresent, m.ID)
	}
	return v, nil
}

// JumpLink is one entry of the quick-jump menu.
type JumpLink struct {
	Method methods.ID `json:"method"`
	Name   string     `json:"name"`
	Anchor string     `json:"anchor"`
}

// DetailSnapshot is the view model of a detail view.
type DetailSnapshot struct {
	ID             uuid.UUID             `json:"id"`
	RecordID       string                `json:"record_id"`
	PredictedClass string                `json:"predicted_class"`
	Confidence     float64               `json:"confidence"`
	Probabilities  []remote.Probability  `json:"probabilities,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
	Image          images.SlotState      `json:"image"`
	Jump           []JumpLink            `json:"jump"`
	Explanations   []render.Snapshot     `json:"explanations"`
	Missing        []methods.Description `json:"missing"`
	Generating     methods.ID            `json:"generating,omitempty"`
	Waiting        string                `json:"waiting,omitempty"`
	Focus          string                `json:"focus,omitempty"`
}

// Snapshot returns the view model with text resolved through l. Explanations
// and missing methods follow catalog order.
func (d *Detail) Snapshot(l locale.Localizer) DetailSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := DetailSnapshot{
		ID:             d.id,
		RecordID:       d.record.ID,
		PredictedClass: d.record.PredictedClass,
		Confidence:     d.record.Confidence,
		Probabilities:  remote.Ranked(d.record.Probabilities),
		Timestamp:      d.record.Timestamp,
		Image:          d.image.State(),
		Jump:           []JumpLink{},
		Explanations:   []render.Snapshot{},
		Missing:        []methods.Description{},
		Generating:     d.active.current(d.record.ID),
		Focus:          d.focus,
	}

	for _, id := range d.recon.Present {
		v, ok := d.views[id]
		if !ok {
			continue
		}
		m := v.Method()
		snap.Jump = append(snap.Jump, JumpLink{Method: m.ID, Name: m.Name, Anchor: m.Anchor()})
		snap.Explanations = append(snap.Explanations, v.Snapshot())
	}
	for _, id := range d.recon.Missing {
		m, _ := methods.Lookup(id)
		snap.Missing = append(snap.Missing, methods.Describe(m, l))
	}
	if snap.Generating != "" {
		snap.Waiting = l.T("xai_methods.waiting")
	}

	return snap
}
