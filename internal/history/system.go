package history

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/pkg/lifecycle"
	"github.com/JaimeStill/dermis/pkg/pagination"
	"github.com/JaimeStill/dermis/pkg/registry"
)

// System defines the public contract for history operations. Every call
// requires the bearer token of a signed-in user.
type System interface {
	Handler(locales *locale.Bundle) *Handler

	// List returns stored sessions newest first, filtered and paginated.
	List(ctx context.Context, token string, q Query) (*pagination.PageResult[remote.HistorySummary], error)

	OpenDetail(ctx context.Context, recordID, token string) (*Detail, error)
	Detail(id uuid.UUID, token string) (*Detail, error)
	CloseDetail(id uuid.UUID, token string) error

	OpenGallery(ctx context.Context, token string, q Query) (*Gallery, error)
	Gallery(id uuid.UUID, token string) (*Gallery, error)
	CloseGallery(id uuid.UUID, token string) error

	// Delete removes one record and closes its open detail views.
	Delete(ctx context.Context, recordID, token string) error
	// DeleteAll removes every record of the user and closes their history views.
	DeleteAll(ctx context.Context, token string) error

	// Start expires idle views and closes all of them on shutdown.
	Start(lc *lifecycle.Coordinator)
}

type system struct {
	client    remote.Client
	images    *images.Manager
	paging    pagination.Config
	details   *registry.Store[*Detail]
	galleries *registry.Store[*Gallery]
	active    *generations
	logger    *slog.Logger
}

// New creates a history system reading from client.
func New(
	client remote.Client,
	manager *images.Manager,
	paging pagination.Config,
	cfg *registry.Config,
	logger *slog.Logger,
) System {
	logger = logger.With("system", "history")
	return &system{
		client:    client,
		images:    manager,
		paging:    paging,
		details:   registry.New[*Detail]("history-details", cfg, logger),
		galleries: registry.New[*Gallery]("history-galleries", cfg, logger),
		active:    newGenerations(),
		logger:    logger,
	}
}

func (s *system) Handler(locales *locale.Bundle) *Handler {
	return NewHandler(s, locales, s.logger, s.paging)
}

func (s *system) List(ctx context.Context, token string, q Query) (*pagination.PageResult[remote.HistorySummary], error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	rows, err := s.client.ListHistory(ctx, token)
	if err != nil {
		return nil, err
	}
	newestFirst(rows)

	q.Normalize(s.paging)
	page := pagination.Slice(filter(rows, q), q.PageRequest)
	return &page, nil
}

func (s *system) OpenDetail(ctx context.Context, recordID, token string) (*Detail, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	d, err := openDetail(ctx, s.client, s.images, s.active, recordID, token, s.logger)
	if err != nil {
		return nil, err
	}

	s.details.Add(d.ID(), d)
	s.logger.Info("detail opened", "id", d.ID(), "record", recordID)
	return d, nil
}

func (s *system) Detail(id uuid.UUID, token string) (*Detail, error) {
	d, ok := s.details.Get(id)
	if !ok || token == "" || !d.OwnedBy(token) {
		return nil, ErrViewNotFound
	}
	return d, nil
}

func (s *system) CloseDetail(id uuid.UUID, token string) error {
	if _, err := s.Detail(id, token); err != nil {
		return err
	}
	s.details.Remove(id)
	return nil
}

func (s *system) OpenGallery(ctx context.Context, token string, q Query) (*Gallery, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	g, err := openGallery(ctx, s.client, s.images, s.paging, token, q, s.logger)
	if err != nil {
		return nil, err
	}

	s.galleries.Add(g.ID(), g)
	s.logger.Info("gallery opened", "id", g.ID())
	return g, nil
}

func (s *system) Gallery(id uuid.UUID, token string) (*Gallery, error) {
	g, ok := s.galleries.Get(id)
	if !ok || token == "" || !g.OwnedBy(token) {
		return nil, ErrViewNotFound
	}
	return g, nil
}

func (s *system) CloseGallery(id uuid.UUID, token string) error {
	if _, err := s.Gallery(id, token); err != nil {
		return err
	}
	s.galleries.Remove(id)
	return nil
}

func (s *system) Delete(ctx context.Context, recordID, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}

	if err := s.client.DeleteHistory(ctx, recordID, token); err != nil {
		return err
	}

	n := s.details.RemoveFunc(func(d *Detail) bool {
		return d.OwnedBy(token) && d.RecordID() == recordID
	})
	s.logger.Info("record deleted", "record", recordID, "closed_views", n)
	return nil
}

func (s *system) DeleteAll(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthenticated
	}

	if err := s.client.DeleteAllHistory(ctx, token); err != nil {
		return err
	}

	n := s.details.RemoveFunc(func(d *Detail) bool { return d.OwnedBy(token) })
	n += s.galleries.RemoveFunc(func(g *Gallery) bool { return g.OwnedBy(token) })
	s.logger.Info("history cleared", "closed_views", n)
	return nil
}

func (s *system) Start(lc *lifecycle.Coordinator) {
	s.details.Start(lc)
	s.galleries.Start(lc)
}
