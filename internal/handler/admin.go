package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/view"
)

const (
	tabLinks      = "links"
	tabSubdomains = "subdomains"
	tabUsers      = "users"
)

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return auth.AdminPrefix
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return auth.AdminPrefix
	}
	if u.Path == auth.LoginPath {
		return auth.AdminPrefix
	}
	return next
}

func (h *Handler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))

	if session := h.codec.FromRequest(r); session.UserID != 0 {
		user, err := h.service.LookupUser(r.Context(), session.UserID)
		if err == nil && user != nil {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
	}

	h.renderPage(w, r, http.StatusOK, view.Login, view.LoginPage{Next: next})
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, view.Login, view.LoginPage{
			Next:  auth.AdminPrefix,
			Error: "invalid form submission",
		})
		return
	}

	username := r.PostFormValue("username")
	next := safeNext(r.PostFormValue("next"))

	user, err := h.service.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error("Login failed", zap.Error(err), zap.String("username", username))
			http.Error(w, msgInternal, http.StatusInternalServerError)
			return
		}
		h.metrics.Login(false)
		h.logger.Warn("Invalid login attempt", zap.String("username", username))
		h.renderPage(w, r, http.StatusUnauthorized, view.Login, view.LoginPage{
			Next:     next,
			Username: username,
			Error:    "invalid username or password",
		})
		return
	}

	session := models.Session{
		IsAuthenticated: true,
		UserID:          user.ID,
		Username:        user.Username,
		IsAdmin:         user.IsAdmin,
		SID:             uuid.NewString(),
	}
	if err := h.codec.SetCookie(w, session, h.cookie); err != nil {
		h.logger.Error("Failed to issue session", zap.Error(err))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	h.metrics.Login(true)
	h.logger.Info("User logged in", zap.String("username", user.Username), zap.String("sid", session.SID))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if session := h.codec.FromRequest(r); session.UserID != 0 {
		h.logger.Info("User logged out", zap.String("username", session.Username), zap.String("sid", session.SID))
	}
	auth.ClearCookie(w, h.cookie)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	user := actor(r)
	page := view.DashboardPage{User: user, Tab: r.URL.Query().Get("tab")}

	switch page.Tab {
	case tabSubdomains:
	case tabUsers:
		if !user.IsAdmin {
			page.Tab = tabLinks
		}
	default:
		page.Tab = tabLinks
	}

	var err error
	if page.Links, err = h.service.ListLinks(r.Context(), user); err != nil {
		h.writeError(w, r, err)
		return
	}
	if page.Subdomains, err = h.service.ListSubdomains(r.Context(), user); err != nil {
		h.writeError(w, r, err)
		return
	}
	if user.IsAdmin {
		if page.Users, err = h.service.ListUsers(r.Context(), user); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	h.renderPage(w, r, http.StatusOK, view.Dashboard, page)
}

func (h *Handler) PasswordPageHandler(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, view.Password, view.PasswordPage{User: actor(r)})
}

// PasswordFormHandler serves browsers without HTMX; the page is re-rendered
// with the outcome.
func (h *Handler) PasswordFormHandler(w http.ResponseWriter, r *http.Request) {
	page := view.PasswordPage{User: actor(r)}

	in, err := decode(r, passwordFromForm)
	if err == nil {
		err = h.service.ChangePassword(r.Context(), page.User, in)
	}
	if err != nil {
		status, message := h.errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Password change failed", zap.Error(err))
		}
		page.Error = message
		h.renderPage(w, r, status, view.Password, page)
		return
	}

	page.Message = "password updated"
	h.renderPage(w, r, http.StatusOK, view.Password, page)
}
