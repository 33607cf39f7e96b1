package api

import (
	"github.com/JaimeStill/dermis/internal/config"
	"github.com/JaimeStill/dermis/internal/infrastructure"
	"github.com/JaimeStill/dermis/pkg/pagination"
	"github.com/JaimeStill/dermis/pkg/registry"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	Sessions      *registry.Config
	MaxUploadSize int64
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
		Sessions:       &cfg.Sessions,
		MaxUploadSize:  cfg.API.MaxUploadSizeBytes(),
	}
}
