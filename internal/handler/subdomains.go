package handler

import (
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/view"
)

func (h *Handler) ListSubdomainsHandler(w http.ResponseWriter, r *http.Request) {
	redirects, err := h.service.ListSubdomains(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if redirects == nil {
		redirects = []models.SubdomainRedirect{}
	}
	render.JSON(w, r, redirects)
}

func (h *Handler) GetSubdomainHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	redirect, err := h.service.GetSubdomain(r.Context(), actor(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, redirect)
}

func (h *Handler) CreateSubdomainHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, subdomainFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	redirect, err := h.service.CreateSubdomain(r.Context(), actor(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("Subdomain redirect created",
		zap.String("host", redirect.Host),
		zap.String("target_url", redirect.TargetURL),
		zap.Int("code", redirect.Code),
		zap.String("user", actor(r).Username))

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusCreated, triggerSubdomains, "success", "subdomain redirect created")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, redirect)
}

func (h *Handler) UpdateSubdomainHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := decode(r, subdomainFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	redirect, err := h.service.UpdateSubdomain(r.Context(), actor(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderFragments(w, r, http.StatusOK, triggerSubdomains,
			view.Part{Name: view.Alert, Data: view.AlertData{Level: "success", Message: "subdomain redirect updated"}},
			view.Part{Name: view.SubRow, Data: view.Row[models.SubdomainRedirect]{Item: *redirect, OOB: true}},
		)
		return
	}
	render.JSON(w, r, redirect)
}

func (h *Handler) DeleteSubdomainHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteSubdomain(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusOK, triggerSubdomains, "success", "subdomain redirect deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
