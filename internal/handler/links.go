package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/view"
)

func (h *Handler) ListLinksHandler(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListLinks(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if links == nil {
		links = []models.ShortLink{}
	}
	render.JSON(w, r, links)
}

func (h *Handler) GetLinkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.service.GetLink(r.Context(), actor(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, link)
}

func (h *Handler) CreateLinkHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, linkFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.service.CreateLink(r.Context(), actor(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusCreated, triggerLinks, "success", "short link created")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, link)
}

func (h *Handler) UpdateLinkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := decode(r, linkFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.service.UpdateLink(r.Context(), actor(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderFragments(w, r, http.StatusOK, triggerLinks,
			view.Part{Name: view.Alert, Data: view.AlertData{Level: "success", Message: "short link updated"}},
			view.Part{Name: view.LinkRow, Data: view.Row[models.ShortLink]{Item: *link, OOB: true}},
		)
		return
	}
	render.JSON(w, r, link)
}

func (h *Handler) DeleteLinkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteLink(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusOK, triggerLinks, "success", "short link deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
