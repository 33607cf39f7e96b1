// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/dermis/internal/config"
	"github.com/JaimeStill/dermis/internal/infrastructure"
	"github.com/JaimeStill/dermis/pkg/middleware"
	"github.com/JaimeStill/dermis/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The domain session sweepers are registered with the infrastructure lifecycle.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)
	domain.Start(runtime.Lifecycle)

	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.RequestID())
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))

	runtime.Logger.Info("api module ready", "prefix", cfg.API.BasePath, "routes", len(patterns))
	return m, nil
}
