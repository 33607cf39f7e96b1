package images

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

type blob struct {
	data        []byte
	contentType string
}

// Blobs is the process-local registry of buffers addressed by revocable handles.
type Blobs struct {
	mu       sync.RWMutex
	items    map[uuid.UUID]blob
	size     int64
	basePath string
}

// NewBlobs creates an empty registry whose handles are URLs under basePath.
func NewBlobs(basePath string) *Blobs {
	return &Blobs{
		items:    make(map[uuid.UUID]blob),
		basePath: strings.TrimRight(basePath, "/"),
	}
}

// Create stores data and returns its id and handle.
func (b *Blobs) Create(data []byte, contentType string) (uuid.UUID, string) {
	id := uuid.New()

	b.mu.Lock()
	b.items[id] = blob{data: data, contentType: contentType}
	b.size += int64(len(data))
	b.mu.Unlock()

	return id, b.basePath + "/" + id.String()
}

// Get returns the buffer for id while it is live.
func (b *Blobs) Get(id uuid.UUID) ([]byte, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	item, ok := b.items[id]
	if !ok {
		return nil, "", false
	}
	return item.data, item.contentType, true
}

// Revoke frees the buffer for id. Reports whether it was live.
func (b *Blobs) Revoke(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items[id]
	if !ok {
		return false
	}
	delete(b.items, id)
	b.size -= int64(len(item.data))
	return true
}

// Len returns the number of live buffers.
func (b *Blobs) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Size returns the total bytes held by live buffers.
func (b *Blobs) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}
