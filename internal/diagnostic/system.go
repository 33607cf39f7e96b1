package diagnostic

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/pkg/lifecycle"
	"github.com/JaimeStill/dermis/pkg/registry"
)

// System defines the public contract for diagnostic session operations.
type System interface {
	Handler(locales *locale.Bundle, maxUploadSize int64) *Handler

	// Open creates a session owned by token.
	Open(token string) *Session
	// Get returns the session for id if token owns it.
	Get(id uuid.UUID, token string) (*Session, error)
	// Close releases the session for id if token owns it.
	Close(id uuid.UUID, token string) error
	// Start expires idle sessions and closes all of them on shutdown.
	Start(lc *lifecycle.Coordinator)
}

type system struct {
	client   remote.Client
	images   *images.Manager
	sessions *registry.Store[*Session]
	logger   *slog.Logger
}

// New creates a session system issuing calls through client.
func New(
	client remote.Client,
	manager *images.Manager,
	cfg *registry.Config,
	logger *slog.Logger,
) System {
	logger = logger.With("system", "diagnostic")
	return &system{
		client:   client,
		images:   manager,
		sessions: registry.New[*Session]("sessions", cfg, logger),
		logger:   logger,
	}
}

func (s *system) Handler(locales *locale.Bundle, maxUploadSize int64) *Handler {
	return NewHandler(s, locales, s.logger, maxUploadSize)
}

func (s *system) Open(token string) *Session {
	session := NewSession(s.client, s.images, token, s.logger)
	s.sessions.Add(session.ID(), session)
	s.logger.Info("session opened", "id", session.ID(), "authenticated", token != "")
	return session
}

func (s *system) Get(id uuid.UUID, token string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok || !session.OwnedBy(token) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *system) Close(id uuid.UUID, token string) error {
	if _, err := s.Get(id, token); err != nil {
		return err
	}
	s.sessions.Remove(id)
	s.logger.Info("session closed", "id", id)
	return nil
}

func (s *system) Start(lc *lifecycle.Coordinator) {
	s.sessions.Start(lc)
}
