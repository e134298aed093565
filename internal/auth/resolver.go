package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
)

const (
	AdminPrefix = "/admin"
	LoginPath   = "/admin/login"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is what the resolver needs from the user domain.
// LookupUser returns a nil user when the id is unknown.
type UserStore interface {
	LookupUser(ctx context.Context, id int64) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type OutcomeKind int

const (
	Authenticated OutcomeKind = iota
	LoginRedirect
	Challenge
)

type Outcome struct {
	Kind     OutcomeKind
	User     *models.User
	Location string
	Message  string
}

// Strategy either resolves the request to a terminal outcome or defers to the next one.
type Strategy func(r *http.Request) (outcome Outcome, resolved bool, err error)

type Resolver struct {
	store      UserStore
	codec      *SessionCodec
	logger     *zap.Logger
	strategies []Strategy
}

func NewResolver(store UserStore, codec *SessionCodec, logger *zap.Logger) *Resolver {
	res := &Resolver{
		store:  store,
		codec:  codec,
		logger: logger,
	}
	res.strategies = []Strategy{
		res.sessionStrategy,
		res.basicStrategy,
		res.loginRedirectStrategy,
		res.challengeStrategy,
	}
	return res
}

func (res *Resolver) Resolve(r *http.Request) (Outcome, error) {
	for _, strategy := range res.strategies {
		outcome, resolved, err := strategy(r)
		if err != nil {
			return Outcome{}, err
		}
		if resolved {
			return outcome, nil
		}
	}
	return Outcome{Kind: Challenge, Message: "not authenticated"}, nil
}

// sessionStrategy wins over Basic credentials whenever the cookie names a live user.
func (res *Resolver) sessionStrategy(r *http.Request) (Outcome, bool, error) {
	session := res.codec.FromRequest(r)
	if session.UserID == 0 {
		return Outcome{}, false, nil
	}

	user, err := res.store.LookupUser(r.Context(), session.UserID)
	if err != nil {
		return Outcome{}, false, err
	}
	if user == nil {
		return Outcome{}, false, nil
	}
	return Outcome{Kind: Authenticated, User: user}, true, nil
}

// basicStrategy skips HTML navigations to the admin surface so the browser
// never shows its credential popup alongside the cookie login form.
func (res *Resolver) basicStrategy(r *http.Request) (Outcome, bool, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return Outcome{}, false, nil
	}
	if IsAdminPath(r.URL.Path) && ExpectsHTML(r) {
		return Outcome{}, false, nil
	}

	user, err := res.store.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			res.logger.Warn("Basic authentication failed",
				zap.String("username", username),
				zap.String("path", r.URL.Path))
			return Outcome{Kind: Challenge, Message: "authentication failed"}, true, nil
		}
		return Outcome{}, false, err
	}
	return Outcome{Kind: Authenticated, User: user}, true, nil
}

func (res *Resolver) loginRedirectStrategy(r *http.Request) (Outcome, bool, error) {
	if !ExpectsHTML(r) && !IsAdminPath(r.URL.Path) {
		return Outcome{}, false, nil
	}
	return Outcome{
		Kind:     LoginRedirect,
		Location: LoginLocation(r.URL),
		Message:  "not logged in",
	}, true, nil
}

func (res *Resolver) challengeStrategy(*http.Request) (Outcome, bool, error) {
	return Outcome{Kind: Challenge, Message: "not authenticated"}, true, nil
}

// LoginLocation builds the login URL carrying the requested path and query as
// next. Every reserved byte is escaped and spaces become %20.
func LoginLocation(u *url.URL) string {
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	if target == "" || target == LoginPath {
		return LoginPath
	}
	// QueryEscape turns a literal "+" into %2B, so any "+" left is a space.
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(target), "+", "%20")
}

func ExpectsHTML(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/html")
}

func IsAdminPath(path string) bool {
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}
