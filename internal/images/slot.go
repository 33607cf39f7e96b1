package images

import (
	"context"
	"sync"
)

// Status describes what a slot currently displays.
type Status string

const (
	StatusEmpty       Status = "empty"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// SlotState is the view model of a slot.
type SlotState struct {
	Status  Status `json:"status"`
	ImageID string `json:"image_id,omitempty"`
	Handle  string `json:"handle,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// Slot is one logical display position. It holds at most one resource and
// guarantees that a load finishing after the slot moved on is released rather
// than installed.
type Slot struct {
	manager *Manager

	mu      sync.Mutex
	current *Resource
	imageID string
	status  Status
	gen     uint64
	closed  bool
}

// NewSlot creates an empty slot backed by m.
func (m *Manager) NewSlot() *Slot {
	return &Slot{manager: m, status: StatusEmpty}
}

// Load releases whatever the slot shows and acquires imageID in its place.
// Returns nil if the image is unavailable or the slot was released, reloaded or
// closed before the fetch completed.
func (s *Slot) Load(ctx context.Context, imageID, token string) *Resource {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	prev := s.current
	s.current = nil
	s.imageID = imageID
	s.status = StatusLoading
	s.mu.Unlock()

	s.manager.Release(prev)

	r := s.manager.Acquire(ctx, imageID, token)

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		s.manager.Release(r)
		return nil
	}
	s.current = r
	if r == nil {
		s.status = StatusUnavailable
	} else {
		s.status = StatusReady
	}
	s.mu.Unlock()

	return r
}

// Release frees the current resource and marks any in-flight load as release-pending.
func (s *Slot) Release() {
	s.mu.Lock()
	s.gen++
	prev := s.current
	s.current = nil
	s.imageID = ""
	s.status = StatusEmpty
	s.mu.Unlock()

	s.manager.Release(prev)
}

// Close releases the slot and rejects further loads.
func (s *Slot) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Release()
}

// Current returns the installed resource, or nil.
func (s *Slot) Current() *Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the slot's view model.
func (s *Slot) State() SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SlotState{Status: s.status, ImageID: s.imageID}
	if s.current != nil {
		state.Handle = s.current.Handle
		state.Kind = s.current.Kind
	}
	return state
}
