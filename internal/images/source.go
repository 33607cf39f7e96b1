package images

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JaimeStill/dermis/pkg/storage"
)

// StorageSource reads images directly from the blob container the remote
// service writes explanation images to.
type StorageSource struct {
	store  storage.System
	prefix string
}

// NewStorageSource creates a Source reading blobs named prefix+imageID from store.
func NewStorageSource(store storage.System, prefix string) *StorageSource {
	return &StorageSource{store: store, prefix: prefix}
}

// FetchImage ignores the token; container access is governed by the storage credentials.
func (s *StorageSource) FetchImage(ctx context.Context, imageID, _ string) ([]byte, string, error) {
	blob, err := s.store.Download(ctx, s.prefix+imageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, imageID)
		}
		return nil, "", err
	}
	defer blob.Body.Close()

	data, err := io.ReadAll(blob.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", imageID, err)
	}

	contentType := blob.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return data, contentType, nil
}
