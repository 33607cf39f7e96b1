// Package infrastructure assembles the shared systems domain modules depend on:
// lifecycle coordination, logging, the remote diagnostic client, image
// resources and localization.
package infrastructure

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/JaimeStill/dermis/internal/config"
	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/pkg/lifecycle"
	"github.com/JaimeStill/dermis/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Storage is nil unless images are read from blob storage.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Remote    remote.Client
	Blobs     *images.Blobs
	Images    *images.Manager
	Storage   storage.System
	Locales   *locale.Bundle
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	client := remote.New(&cfg.Service, &http.Client{}, logger)

	var (
		source images.Source = client
		store  storage.System
	)
	if cfg.Images.UsesStorage() {
		s, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		store = s
		source = images.NewStorageSource(s, cfg.Images.KeyPrefix)
	}

	locales, err := locale.Load(cfg.Locale.Default)
	if err != nil {
		return nil, fmt.Errorf("locale init failed: %w", err)
	}
	for _, lang := range locales.Languages() {
		if missing := locales.Missing(lang); len(missing) > 0 {
			logger.Warn("locale incomplete", "lang", lang, "missing", missing)
		}
	}

	blobs := images.NewBlobs(cfg.API.BlobPath())

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Remote:    client,
		Blobs:     blobs,
		Images:    images.NewManager(source, blobs, logger),
		Storage:   store,
		Locales:   locales,
	}, nil
}

// Start registers infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		i.Logger.Info("image buffers released", "remaining", i.Blobs.Len())
	})
	return nil
}
