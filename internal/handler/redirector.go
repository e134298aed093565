package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/service"
)

// RedirectHandler is the catch-all: host rules first, then the short-code fallback.
func (h *Handler) RedirectHandler(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, service.RedirectRequest{
		Host:     r.Host,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Method:   r.Method,
	})
}

func (h *Handler) ShortCodeHandler(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, service.RedirectRequest{
		Host:     r.Host,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Method:   r.Method,
		Code:     chi.URLParam(r, "code"),
	})
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, req service.RedirectRequest) {
	res, err := h.service.Resolve(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrNoRoute):
		h.metrics.Miss("no_route")
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, service.ErrNotFound):
		h.metrics.Miss("unknown_code")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, models.ErrorResponse{Error: service.Message(err, "short link not found")})
	case err != nil:
		h.writeError(w, r, err)
	default:
		h.metrics.Redirect(string(res.Kind), res.Status)
		http.Redirect(w, r, res.Location, res.Status)
	}
}
