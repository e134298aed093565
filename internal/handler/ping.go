package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
)

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, models.HealthResponse{OK: false})
		return
	}
	render.JSON(w, r, models.HealthResponse{OK: true})
}

// ListRoutesHandler publishes every subdomain redirect ordered by host.
func (h *Handler) ListRoutesHandler(w http.ResponseWriter, r *http.Request) {
	routes, err := h.service.ListRoutes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if routes == nil {
		routes = []models.SubdomainRedirect{}
	}
	render.JSON(w, r, routes)
}

func (h *Handler) GetRouteHandler(w http.ResponseWriter, r *http.Request) {
	route, err := h.service.RouteByHost(r.Context(), chi.URLParam(r, "host"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, route)
}
