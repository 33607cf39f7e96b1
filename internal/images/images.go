// Package images manages the lifetime of displayable image handles. Authenticated
// viewers receive revocable handles backed by in-process buffers; anonymous viewers
// receive inline data URIs built from the image id itself.
package images

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// InlinePrefix starts every inline handle. Anonymous image ids are base64 PNG payloads.
const InlinePrefix = "data:image/png;base64,"

// Kind distinguishes handles that must be revoked from those that need no cleanup.
type Kind string

const (
	KindRevocable Kind = "revocable"
	KindInline    Kind = "inline"
)

// Source fetches stored image bytes by id. An empty token fetches anonymously.
type Source interface {
	FetchImage(ctx context.Context, imageID, token string) ([]byte, string, error)
}

// Resource is a displayable handle for one image, owned by exactly one view slot.
type Resource struct {
	ImageID string `json:"image_id"`
	Handle  string `json:"handle"`
	Kind    Kind   `json:"kind"`

	blob uuid.UUID
}

// Revocable reports whether releasing the resource frees a buffer.
func (r *Resource) Revocable() bool {
	return r != nil && r.Kind == KindRevocable
}

// Manager acquires and releases image resources.
type Manager struct {
	source Source
	blobs  *Blobs
	logger *slog.Logger
}

// NewManager creates a Manager fetching from source and registering buffers in blobs.
func NewManager(source Source, blobs *Blobs, logger *slog.Logger) *Manager {
	return &Manager{
		source: source,
		blobs:  blobs,
		logger: logger.With("system", "images"),
	}
}

// Source returns the store images are fetched from.
func (m *Manager) Source() Source {
	return m.source
}

// Blobs returns the buffer registry backing revocable handles.
func (m *Manager) Blobs() *Blobs {
	return m.blobs
}

// Acquire produces a displayable handle for imageID. A non-empty token marks an
// authenticated viewer, whose images are fetched and buffered; anonymous viewers
// get an inline handle without any fetch. Returns nil when the image cannot be
// produced; callers render a placeholder.
func (m *Manager) Acquire(ctx context.Context, imageID, token string) *Resource {
	if imageID == "" {
		return nil
	}

	if token == "" {
		return &Resource{
			ImageID: imageID,
			Handle:  InlinePrefix + imageID,
			Kind:    KindInline,
		}
	}

	data, contentType, err := m.source.FetchImage(ctx, imageID, token)
	if err != nil {
		m.logger.WarnContext(ctx, "image unavailable", "image_id", imageID, "error", err)
		return nil
	}

	id, handle := m.blobs.Create(data, contentType)
	return &Resource{
		ImageID: imageID,
		Handle:  handle,
		Kind:    KindRevocable,
		blob:    id,
	}
}

// Release frees the buffer behind a revocable resource. Inline and nil resources are ignored.
func (m *Manager) Release(r *Resource) {
	if !r.Revocable() {
		return
	}
	m.blobs.Revoke(r.blob)
}
