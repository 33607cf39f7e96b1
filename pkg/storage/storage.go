// Package storage provides read access to image blobs held in Azure Blob Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/dermis/pkg/lifecycle"
)

// Blob is an open blob stream with its metadata. The caller must close Body.
type Blob struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// System reads blobs and coordinates with the application lifecycle.
type System interface {
	// Start registers a startup hook that verifies the container is reachable.
	Start(lc *lifecycle.Coordinator) error
	// Download opens the blob at key. Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (*Blob, error)
}

type azure struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// New creates a storage system from the given configuration.
// It validates the connection string and creates the Azure client
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		logger:    logger.With("system", "storage"),
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup(func() {
		_, err := a.client.
			ServiceClient().
			NewContainerClient(a.container).
			GetProperties(lc.Context(), nil)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				a.logger.Error("storage container missing", "container", a.container)
				return
			}
			a.logger.Error("storage container check failed", "error", err)
			return
		}

		a.logger.Info("storage container ready", "container", a.container)
	})

	return nil
}

func (a *azure) Download(ctx context.Context, key string) (*Blob, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}

	blob := &Blob{Body: resp.Body}
	if resp.ContentType != nil {
		blob.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		blob.ContentLength = *resp.ContentLength
	}
	return blob, nil
}

func validateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(key, "/"), strings.ContainsRune(key, '\\'):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for segment := range strings.SplitSeq(key, "/") {
		if segment == ".." || segment == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
