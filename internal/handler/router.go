package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/middleware"
)

func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.GzipMiddleware)

	r.Get("/healthz", h.HealthHandler)
	r.Get("/routes", h.ListRoutesHandler)
	r.Get("/routes/{host}", h.GetRouteHandler)
	r.Handle("/metrics", h.metrics.Handler())

	// Groups register concrete endpoints only, so any other path under
	// /api or /admin still reaches the catch-all redirect.
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.RequireUser)

		r.Get("/api/links", h.ListLinksHandler)
		r.Post("/api/links", h.CreateLinkHandler)
		r.Get("/api/links/{id}", h.GetLinkHandler)
		r.Put("/api/links/{id}", h.UpdateLinkHandler)
		r.Delete("/api/links/{id}", h.DeleteLinkHandler)

		r.Get("/api/subdomains", h.ListSubdomainsHandler)
		r.Post("/api/subdomains", h.CreateSubdomainHandler)
		r.Get("/api/subdomains/{id}", h.GetSubdomainHandler)
		r.Put("/api/subdomains/{id}", h.UpdateSubdomainHandler)
		r.Delete("/api/subdomains/{id}", h.DeleteSubdomainHandler)

		r.Post("/api/users/me/password", h.ChangePasswordHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticator.RequireAdmin)
			r.Get("/api/users", h.ListUsersHandler)
			r.Post("/api/users", h.CreateUserHandler)
			r.Get("/api/users/{id}", h.GetUserHandler)
			r.Put("/api/users/{id}", h.UpdateUserHandler)
			r.Delete("/api/users/{id}", h.DeleteUserHandler)
		})
	})

	r.Get(auth.LoginPath, h.LoginPageHandler)
	r.Post(auth.LoginPath, h.LoginHandler)
	r.Get("/admin/logout", h.LogoutHandler)
	r.Post("/admin/logout", h.LogoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.RequireUser)

		r.Get("/admin", h.DashboardHandler)
		r.Get("/admin/", h.DashboardHandler)
		r.Get("/admin/password", h.PasswordPageHandler)
		r.Post("/admin/password", h.PasswordFormHandler)

		r.Get("/admin/links/table", h.LinkTableHandler)
		r.Get("/admin/links/count", h.LinkCountHandler)
		r.Get("/admin/links/{id}/row", h.LinkRowHandler)
		r.Get("/admin/links/{id}/edit", h.LinkEditRowHandler)

		r.Get("/admin/subdomains/table", h.SubdomainTableHandler)
		r.Get("/admin/subdomains/count", h.SubdomainCountHandler)
		r.Get("/admin/subdomains/{id}/row", h.SubdomainRowHandler)
		r.Get("/admin/subdomains/{id}/edit", h.SubdomainEditRowHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticator.RequireAdmin)
			r.Get("/admin/users/table", h.UserTableHandler)
			r.Get("/admin/users/count", h.UserCountHandler)
			r.Get("/admin/users/{id}/row", h.UserRowHandler)
			r.Get("/admin/users/{id}/edit", h.UserEditRowHandler)
		})
	})

	r.Get("/r/{code}", h.ShortCodeHandler)
	r.Head("/r/{code}", h.ShortCodeHandler)

	r.HandleFunc("/*", h.RedirectHandler)
	r.HandleFunc("/", h.RedirectHandler)

	r.NotFound(h.RedirectHandler)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	return r
}
