package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/models"
)

type contextKey string

const userKey contextKey = "user"

// Authenticator resolves the caller for every request it wraps and either
// stores the user in the context or ends the request with a login redirect
// or a Basic challenge.
type Authenticator struct {
	resolver *auth.Resolver
	fail     FailureFunc
	logger   *zap.Logger
}

// FailureFunc writes a rejected request's status and message.
type FailureFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

func NewAuthenticator(resolver *auth.Resolver, logger *zap.Logger) *Authenticator {
	return &Authenticator{resolver: resolver, fail: writeDetail, logger: logger}
}

// OnFailure replaces the default {"detail"} JSON body for 401, 403 and 500 answers.
func (a *Authenticator) OnFailure(fn FailureFunc) {
	if fn != nil {
		a.fail = fn
	}
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, models.DetailResponse{Detail: message})
}

func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome, err := a.resolver.Resolve(r)
		if err != nil {
			a.logger.Error("Failed to resolve caller", zap.Error(err), zap.String("path", r.URL.Path))
			a.fail(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		switch outcome.Kind {
		case auth.Authenticated:
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), outcome.User)))
		case auth.LoginRedirect:
			http.Redirect(w, r, outcome.Location, http.StatusSeeOther)
		default:
			w.Header().Set("WWW-Authenticate", "Basic")
			a.fail(w, r, http.StatusUnauthorized, outcome.Message)
		}
	})
}

// RequireAdmin must run after RequireUser.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin {
			a.fail(w, r, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}
