package history

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/dermis/internal/locale"
	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/pkg/handlers"
	"github.com/JaimeStill/dermis/pkg/pagination"
	"github.com/JaimeStill/dermis/pkg/routes"
)

// Handler provides HTTP endpoints for the history gallery and detail views.
type Handler struct {
	sys        System
	locales    *locale.Bundle
	logger     *slog.Logger
	pagination pagination.Config
}

// OpenDetailRequest names the record a detail view renders.
type OpenDetailRequest struct {
	RecordID string `json:"record_id"`
}

// MethodRequest names the explanation method a detail operation applies to.
type MethodRequest struct {
	Method methods.ID `json:"method"`
}

// HeatmapRequest switches a stored toggle-mode explanation.
type HeatmapRequest struct {
	Method methods.ID `json:"method"`
	Show   bool       `json:"show"`
}

// OpacityRequest sets the heatmap opacity of a stored blend-mode explanation.
type OpacityRequest struct {
	Method  methods.ID `json:"method"`
	Opacity int        `json:"opacity"`
}

// NewHandler creates a Handler with the given system, locales, logger and pagination config.
func NewHandler(
	sys System,
	locales *locale.Bundle,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		locales:    locales,
		logger:     logger.With("handler", "history"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for history endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/history",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "DELETE", Pattern: "", Handler: h.DeleteAll},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
		Children: []routes.Group{
			{
				Prefix: "/details",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "", Handler: h.OpenDetail},
					{Method: "GET", Pattern: "/{viewId}", Handler: h.FindDetail},
					{Method: "DELETE", Pattern: "/{viewId}", Handler: h.CloseDetail},
					{Method: "POST", Pattern: "/{viewId}/generate", Handler: h.Generate},
					{Method: "POST", Pattern: "/{viewId}/jump", Handler: h.Jump},
					{Method: "POST", Pattern: "/{viewId}/heatmap", Handler: h.DetailHeatmap},
					{Method: "POST", Pattern: "/{viewId}/opacity", Handler: h.DetailOpacity},
				},
			},
			{
				Prefix: "/galleries",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "", Handler: h.OpenGallery},
					{Method: "GET", Pattern: "/{viewId}", Handler: h.FindGallery},
					{Method: "DELETE", Pattern: "/{viewId}", Handler: h.CloseGallery},
					{Method: "POST", Pattern: "/{viewId}/page", Handler: h.ShowPage},
					{Method: "POST", Pattern: "/{viewId}/refresh", Handler: h.Refresh},
				},
			},
		},
	}
}

// List returns stored sessions newest first. Supports page, page_size and class query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := QueryFromValues(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), handlers.BearerToken(r), q)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Delete removes one stored session.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), r.PathValue("id"), handlers.BearerToken(r)); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll removes every stored session of the caller.
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.DeleteAll(r.Context(), handlers.BearerToken(r)); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OpenDetail opens a detail view for the record named in the JSON body.
func (h *Handler) OpenDetail(w http.ResponseWriter, r *http.Request) {
	var req OpenDetailRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil || req.RecordID == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	d, err := h.sys.OpenDetail(r.Context(), req.RecordID, handlers.BearerToken(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, d.Snapshot(h.locales.FromRequest(r)))
}

// FindDetail returns the snapshot of a detail view.
func (h *Handler) FindDetail(w http.ResponseWriter, r *http.Request) {
	d, ok := h.detail(w, r)
	if !ok {
		return
	}
	h.respondDetail(w, r, d)
}

// CloseDetail releases a detail view.
func (h *Handler) CloseDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("viewId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrViewNotFound)
		return
	}

	if err := h.sys.CloseDetail(id, handlers.BearerToken(r)); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Generate creates the explanation for a missing method and adds it to the view.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.detail(w, r)
	if !ok {
		return
	}

	var req MethodRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := d.Generate(r.Context(), req.Method); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respondDetail(w, r, d)
}

// Jump focuses a stored explanation.
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	d, ok := h.detail(w, r)
	if !ok {
		return
	}

	var req MethodRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if _, err := d.Jump(req.Method); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respondDetail(w, r, d)
}

// DetailHeatmap switches a stored explanation between overlay and heatmap.
func (h *Handler) DetailHeatmap(w http.ResponseWriter, r *http.Request) {
	d, ok := h.detail(w, r)
	if !ok {
		return
	}

	var req HeatmapRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := d.ShowHeatmap(r.Context(), req.Method, req.Show); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respondDetail(w, r, d)
}

// DetailOpacity sets the heatmap opacity of a stored explanation.
func (h *Handler) DetailOpacity(w http.ResponseWriter, r *http.Request) {
	d, ok := h.detail(w, r)
	if !ok {
		return
	}

	var req OpacityRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := d.SetOpacity(req.Method, req.Opacity); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respondDetail(w, r, d)
}

// OpenGallery opens a gallery view. Accepts page, page_size and class query parameters.
func (h *Handler) OpenGallery(w http.ResponseWriter, r *http.Request) {
	q := QueryFromValues(r.URL.Query(), h.pagination)

	g, err := h.sys.OpenGallery(r.Context(), handlers.BearerToken(r), q)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, g.Snapshot())
}

// FindGallery returns the snapshot of a gallery view.
func (h *Handler) FindGallery(w http.ResponseWriter, r *http.Request) {
	g, ok := h.gallery(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, g.Snapshot())
}

// CloseGallery releases a gallery view.
func (h *Handler) CloseGallery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("viewId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrViewNotFound)
		return
	}

	if err := h.sys.CloseGallery(id, handlers.BearerToken(r)); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ShowPage changes the page or class filter of a gallery from a JSON body.
func (h *Handler) ShowPage(w http.ResponseWriter, r *http.Request) {
	g, ok := h.gallery(w, r)
	if !ok {
		return
	}

	var q Query
	if err := handlers.DecodeJSON(w, r, &q); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := g.Show(r.Context(), q); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g.Snapshot())
}

// Refresh reloads the gallery rows and redisplays the current page.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	g, ok := h.gallery(w, r)
	if !ok {
		return
	}

	if err := g.Refresh(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if err := g.Show(r.Context(), g.Query()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g.Snapshot())
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) (*Detail, bool) {
	id, err := uuid.Parse(r.PathValue("viewId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrViewNotFound)
		return nil, false
	}

	d, err := h.sys.Detail(id, handlers.BearerToken(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return d, true
}

func (h *Handler) gallery(w http.ResponseWriter, r *http.Request) (*Gallery, bool) {
	id, err := uuid.Parse(r.PathValue("viewId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrViewNotFound)
		return nil, false
	}

	g, err := h.sys.Gallery(id, handlers.BearerToken(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return g, true
}

func (h *Handler) respondDetail(w http.ResponseWriter, r *http.Request, d *Detail) {
	handlers.RespondJSON(w, http.StatusOK, d.Snapshot(h.locales.FromRequest(r)))
}
