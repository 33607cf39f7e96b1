package diagnostic

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
	"github.com/JaimeStill/dermis/pkg/formatting"
	"github.com/JaimeStill/dermis/pkg/handlers"
	"github.com/JaimeStill/dermis/pkg/routes"
)

// Handler provides HTTP endpoints for diagnostic sessions. Every endpoint that
// touches a session answers with its snapshot.
type Handler struct {
	sys           System
	locales       *locale.Bundle
	logger        *slog.Logger
	maxUploadSize int64
}

// ExplainRequest selects an explanation method.
type ExplainRequest struct {
	Method methods.ID `json:"method"`
}

// HeatmapRequest switches a toggle-mode explanation.
type HeatmapRequest struct {
	Show bool `json:"show"`
}

// OpacityRequest sets the heatmap opacity of a blend-mode explanation.
type OpacityRequest struct {
	Opacity int `json:"opacity"`
}

// NewHandler creates a Handler with the given system, locales, logger and upload size limit.
func NewHandler(
	sys System,
	locales *locale.Bundle,
	logger *slog.Logger,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		locales:       locales,
		logger:        logger.With("handler", "sessions"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Open},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Close},
			{Method: "PUT", Pattern: "/{id}/image", Handler: h.SelectImage},
			{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/proceed", Handler: h.action((*Session).Proceed)},
			{Method: "POST", Pattern: "/{id}/retry", Handler: h.action((*Session).Retry)},
			{Method: "POST", Pattern: "/{id}/back", Handler: h.action((*Session).Back)},
			{Method: "POST", Pattern: "/{id}/reset", Handler: h.action((*Session).Reset)},
			{Method: "POST", Pattern: "/{id}/explain", Handler: h.Explain},
			{Method: "POST", Pattern: "/{id}/heatmap", Handler: h.Heatmap},
			{Method: "POST", Pattern: "/{id}/opacity", Handler: h.Opacity},
		},
	}
}

// Open creates a session owned by the request's bearer token.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	s := h.sys.Open(handlers.BearerToken(r))
	handlers.RespondJSON(w, http.StatusCreated, s.Snapshot(h.locales.FromRequest(r)))
}

// Find returns the snapshot of a session.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, s)
}

// Close releases a session and everything it holds.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrSessionNotFound)
		return
	}

	if err := h.sys.Close(id, handlers.BearerToken(r)); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectImage stores the multipart "file" field as the session image.
func (h *Handler) SelectImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(w)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidImage)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidImage)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		h.tooLarge(w)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidImage)
		return
	}

	img := remote.Image{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}

	if err := s.SelectImage(img); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respond(w, r, s)
}

// Submit classifies the session image. Analysis failures are reported in the
// snapshot, not as an error status.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Submit(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respond(w, r, s)
}

// Explain generates and renders an explanation with the requested method.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ExplainRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := s.SelectMethod(r.Context(), req.Method); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respond(w, r, s)
}

// Heatmap switches the viewed explanation between its overlay and heatmap.
func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req HeatmapRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := s.ShowHeatmap(r.Context(), req.Show); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respond(w, r, s)
}

// Opacity sets the heatmap opacity of the viewed explanation.
func (h *Handler) Opacity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req OpacityRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := s.SetOpacity(req.Opacity); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respond(w, r, s)
}

func (h *Handler) action(fn func(*Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.session(w, r)
		if !ok {
			return
		}

		if err := fn(s); err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}

		h.respond(w, r, s)
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrSessionNotFound)
		return nil, false
	}

	s, err := h.sys.Get(id, handlers.BearerToken(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return s, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, s *Session) {
	handlers.RespondJSON(w, http.StatusOK, s.Snapshot(h.locales.FromRequest(r)))
}

func (h *Handler) tooLarge(w http.ResponseWriter) {
	err := fmt.Errorf("%w: limit %s", ErrImageTooLarge, formatting.FormatBytes(h.maxUploadSize, 1))
	handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
}
