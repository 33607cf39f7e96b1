package api

import (
	"net/http"

	"github.com/JaimeStill/dermis/internal/images"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) []string {
	groups := []routes.Group{
		domain.Diagnostic.Handler(runtime.Locales, runtime.MaxUploadSize).Routes(),
		domain.History.Handler(runtime.Locales).Routes(),
		methods.NewHandler(runtime.Locales, runtime.Logger).Routes(),
		images.NewHandler(runtime.Blobs, runtime.Logger).Routes(),
	}

	routes.Register(mux, groups...)
	return routes.Patterns(groups...)
}
