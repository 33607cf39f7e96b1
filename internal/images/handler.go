package images

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/pkg/handlers"
	"github.com/JaimeStill/dermis/pkg/routes"
)

// Handler serves live revocable buffers.
type Handler struct {
	blobs  *Blobs
	logger *slog.Logger
}

// NewHandler creates a Handler over blobs.
func NewHandler(blobs *Blobs, logger *slog.Logger) *Handler {
	return &Handler{
		blobs:  blobs,
		logger: logger.With("handler", "blobs"),
	}
}

// Routes returns the route group definition for buffer endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/blobs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.Serve},
		},
	}
}

// Serve writes the buffer addressed by the id path parameter. Revoked handles return 404.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrBlobNotFound)
		return
	}

	data, contentType, ok := h.blobs.Get(id)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrBlobNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
