package main

import (
	"net/http"

	"github.com/JaimeStill/dermis/internal/api"
	"github.com/JaimeStill/dermis/internal/config"
	"github.com/JaimeStill/dermis/internal/infrastructure"
	"github.com/JaimeStill/dermis/pkg/handlers"
	"github.com/JaimeStill/dermis/pkg/module"
)

// Modules holds the HTTP modules mounted on the root router.
type Modules struct {
	API *module.Module
}

// NewModules creates every module from the shared infrastructure.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

// Mount registers every module with router.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	return router
}
