// Package registry keeps stateful views addressable by id and closes them when
// they are removed, sit idle past a TTL, or the application shuts down.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/pkg/lifecycle"
)

// Closer releases everything a view owns.
type Closer interface {
	Close()
}

type entry[T Closer] struct {
	value   T
	touched time.Time
}

// Store is a concurrency-safe registry of views of one kind.
type Store[T Closer] struct {
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	items map[uuid.UUID]*entry[T]
}

// New creates an empty Store. name scopes the log output.
func New[T Closer](name string, cfg *Config, logger *slog.Logger) *Store[T] {
	return &Store[T]{
		ttl:      cfg.IdleTTLDuration(),
		interval: cfg.SweepIntervalDuration(),
		logger:   logger.With("registry", name),
		items:    make(map[uuid.UUID]*entry[T]),
	}
}

// Add registers v under id, closing any view previously held under the same id.
func (s *Store[T]) Add(id uuid.UUID, v T) {
	s.mu.Lock()
	prev, ok := s.items[id]
	s.items[id] = &entry[T]{value: v, touched: time.Now()}
	s.mu.Unlock()

	if ok {
		prev.value.Close()
	}
}

// Get returns the view for id and marks it as recently used.
func (s *Store[T]) Get(id uuid.UUID) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	e.touched = time.Now()
	return e.value, true
}

// Remove closes and forgets the view for id. Reports whether it existed.
func (s *Store[T]) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	e, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if ok {
		e.value.Close()
	}
	return ok
}

// RemoveFunc closes and forgets every view for which match returns true.
func (s *Store[T]) RemoveFunc(match func(T) bool) int {
	s.mu.Lock()
	var removed []T
	for id, e := range s.items {
		if match(e.value) {
			removed = append(removed, e.value)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, v := range removed {
		v.Close()
	}
	return len(removed)
}

// Len returns the number of registered views.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep closes views idle longer than the TTL as of now.
func (s *Store[T]) Sweep(now time.Time) int {
	s.mu.Lock()
	var expired []T
	for id, e := range s.items {
		if now.Sub(e.touched) > s.ttl {
			expired = append(expired, e.value)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, v := range expired {
		v.Close()
	}

	if len(expired) > 0 {
		s.logger.Info("expired idle views", "count", len(expired))
	}
	return len(expired)
}

// CloseAll closes and forgets every view.
func (s *Store[T]) CloseAll() int {
	return s.RemoveFunc(func(T) bool { return true })
}

// Start sweeps idle views every sweep interval until the lifecycle shuts
// down, then closes every remaining view.
func (s *Store[T]) Start(lc *lifecycle.Coordinator) {
	lc.Every(s.interval, func(now time.Time) { s.Sweep(now) }, func() {
		n := s.CloseAll()
		s.logger.Info("registry closed", "views", n)
	})
}
