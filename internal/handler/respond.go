package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/middleware"
	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/service"
	"github.com/yetla/redirector/internal/view"
)

// HX-Trigger events emitted after successful mutations.
const (
	triggerLinks      = "refresh-links"
	triggerSubdomains = "refresh-subdomains"
	triggerUsers      = "refresh-users"
	triggerPassword   = "password-updated"
)

const msgInternal = "internal server error"

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func actor(r *http.Request) *models.User {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.Error{Kind: service.ErrValidation, Message: "id must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, service.Message(err, "not found")
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, service.Message(err, "conflict")
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, service.Message(err, "forbidden")
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, service.Message(err, "not authenticated")
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, service.Message(err, "invalid request")
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest, service.Message(err, "bad request")
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError answers with {"error"} for 404 and 409, {"detail"} otherwise,
// or with an alert fragment for HTMX requests.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := h.errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
	}
	h.writeStatus(w, r, status, message)
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isHTMX(r) {
		h.renderAlert(w, r, status, "", "danger", message)
		return
	}

	render.Status(r, status)
	switch status {
	case http.StatusNotFound, http.StatusConflict:
		render.JSON(w, r, models.ErrorResponse{Error: message})
	default:
		render.JSON(w, r, models.DetailResponse{Detail: message})
	}
}

func (h *Handler) renderAlert(w http.ResponseWriter, r *http.Request, status int, trigger, level, message string) {
	h.renderFragments(w, r, status, trigger, view.Part{
		Name: view.Alert,
		Data: view.AlertData{Level: level, Message: message},
	})
}

func (h *Handler) renderFragments(w http.ResponseWriter, r *http.Request, status int, trigger string, parts ...view.Part) {
	if trigger != "" {
		w.Header().Set("HX-Trigger", trigger)
	}
	if err := h.views.Fragments(w, status, parts...); err != nil {
		h.logger.Error("Failed to render fragment", zap.Error(err), zap.String("path", r.URL.Path))
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.views.Render(w, status, name, data); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err), zap.String("template", name))
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}
