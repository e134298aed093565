package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/view"
)

func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), actor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	render.JSON(w, r, users)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.GetUser(r.Context(), actor(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, user)
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, userFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), actor(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusCreated, triggerUsers, "success", "user created")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := decode(r, userFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), actor(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderFragments(w, r, http.StatusOK, triggerUsers,
			view.Part{Name: view.Alert, Data: view.AlertData{Level: "success", Message: "user updated"}},
			view.Part{Name: view.UserRow, Data: view.Row[models.User]{Item: *user, OOB: true}},
		)
		return
	}
	render.JSON(w, r, user)
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), actor(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusOK, triggerUsers, "success", "user deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	in, err := decode(r, passwordFromForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), actor(r), in); err != nil {
		h.writeError(w, r, err)
		return
	}

	if isHTMX(r) {
		h.renderAlert(w, r, http.StatusOK, triggerPassword, "success", "password updated")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
