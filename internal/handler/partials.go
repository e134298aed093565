package handler

import (
	"net/http"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/view"
)

// Fragment endpoints polled by the dashboard after HX-Trigger events.

func (h *Handler) LinkTableHandler(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListLinks(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, view.LinkTable, links)
}

func (h *Handler) LinkCountHandler(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListLinks(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, view.LinkCount, len(links))
}

func (h *Handler) LinkRowHandler(w http.ResponseWriter, r *http.Request) {
	link, ok := h.loadLink(w, r)
	if !ok {
		return
	}
	h.renderPage(w, r, http.StatusOK, view.LinkRow, view.Row[models.ShortLink]{Item: *link})
}

func (h *Handler) LinkEditRowHandler(w http.ResponseWriter, r *http.Request) {
	link, ok := h.loadLink(w, r)
	if !ok {
		return
	}
	h.renderPage(w, r, http.StatusOK, view.LinkEditRow, link)
}

func (h *Handler) loadLink(w http.ResponseWriter, r *http.Request) (*models.ShortLink, bool) {
	id, err := pathID(r)
	if err == nil {
		var link *models.ShortLink
		if link, err = h.service.GetLink(r.Context(), actor(r), id); err == nil {
			return link, true
		}
	}
	h.writeError(w, r, err)
	return nil, false
}

func (h *Handler) SubdomainTableHandler(w http.ResponseWriter, r *http.Request) {
	redirects, err := h.service.ListSubdomains(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, view.SubTable, redirects)
}

func (h *Handler) SubdomainCountHandler(w http.ResponseWriter, r *http.Request) {
	redirects, err := h.service.ListSubdomains(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, view.SubCount, len(redirects))
}

func (h *Handler) SubdomainRowHandler(w http.ResponseWriter, r *http.Request) {
	redirect, ok := h.loadSubdomain(w, r)
	if !ok {
		return
	}
	h.renderPage(w, r, http.StatusOK, view.SubRow, view.Row[models.SubdomainRedirect]{Item: *redirect})
}

func (h *Handler) SubdomainEditRowHandler(w http.ResponseWriter, r *http.Request) {
	redirect, ok := h.loadSubdomain(w, r)
	if !ok {
		return
	}
	h.renderPage(w, r, http.StatusOK, view.SubEditRow, redirect)
}

func (h *Handler) loadSubdomain(w http.ResponseWriter, r *http.Request) (*models.SubdomainRedirect, bool) {
	id, err := pathID(r)
	if err == nil {
		var redirect *models.SubdomainRedirect
		if redirect, err = h.service.GetSubdomain(r.Context(), actor(r), id); err == nil {
			return redirect, true
		}
	}
	h.writeError(w, r, err)
	return nil, false
}

func (h *Handler) UserTableHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, view.UserTable, users)
}

func (h *Handler) UserCountHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, view.UserCount, len(users))
}

func (h *Handler) UserRowHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.renderPage(w, r, http.StatusOK, view.UserRow, view.Row[models.User]{Item: *user})
}

func (h *Handler) UserEditRowHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.renderPage(w, r, http.StatusOK, view.UserEditRow, user)
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id, err := pathID(r)
	if err == nil {
		var user *models.User
		if user, err = h.service.GetUser(r.Context(), actor(r), id); err == nil {
			return user, true
		}
	}
	h.writeError(w, r, err)
	return nil, false
}
