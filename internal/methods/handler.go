package methods

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/pkg/handlers"
	"github.com/JaimeStill/dermis/pkg/routes"
)

// Handler serves the localized method catalog.
type Handler struct {
	locales *locale.Bundle
	logger  *slog.Logger
}

// NewHandler creates a Handler resolving text through locales.
func NewHandler(locales *locale.Bundle, logger *slog.Logger) *Handler {
	return &Handler{
		locales: locales,
		logger:  logger.With("handler", "methods"),
	}
}

// Routes returns the route group definition for method endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/methods",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns every method described in the request's language.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, DescribeAll(h.locales.FromRequest(r)))
}

// Find returns a single method by id or alias.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	m, _ := Lookup(id)
	handlers.RespondJSON(w, http.StatusOK, Describe(m, h.locales.FromRequest(r)))
}
