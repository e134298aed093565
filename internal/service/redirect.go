package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/repository"
)

type RedirectKind string

const (
	KindSubdomain RedirectKind = "subdomain"
	KindShortLink RedirectKind = "short_link"
)

// RedirectRequest is the part of an inbound request the engine looks at.
// A non-empty Code is an explicit /r/{code} lookup.
type RedirectRequest struct {
	Host     string
	Path     string
	RawQuery string
	Method   string
	Code     string
}

type Redirect struct {
	Location string
	Status   int
	Kind     RedirectKind
}

// Resolve decides where a request goes. Host rules always win over short codes.
// ErrNoRoute means a plain 404; a *Error with ErrNotFound means the short code is unknown.
func (s *Service) Resolve(ctx context.Context, req RedirectRequest) (*Redirect, error) {
	host := NormalizeHost(req.Host)
	if host == "" {
		return nil, ErrNoRoute
	}

	redirect, err := s.repo.GetSubdomainByHost(ctx, host)
	switch {
	case err == nil:
		if err := s.repo.IncrementSubdomainHits(ctx, redirect.ID); err != nil {
			return nil, err
		}
		return &Redirect{
			Location: ComposeLocation(redirect.TargetURL, req.Path, req.RawQuery),
			Status:   redirect.Code,
			Kind:     KindSubdomain,
		}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return nil, ErrNoRoute
	}

	code := req.Code
	if code == "" {
		if !s.servesShortLinks(host) {
			return nil, ErrNoRoute
		}
		code = strings.Trim(req.Path, "/")
		if code == "" || strings.Contains(code, "/") {
			return nil, ErrNoRoute
		}
	}

	link, err := s.repo.GetShortLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug("Short code not found", zap.String("code", code), zap.String("host", host))
		}
		return nil, storeError(err, msgLinkNotFound, msgLinkExists)
	}
	if err := s.repo.IncrementShortLinkHits(ctx, link.ID); err != nil {
		return nil, err
	}
	return &Redirect{
		Location: link.TargetURL,
		Status:   http.StatusFound,
		Kind:     KindShortLink,
	}, nil
}

func (s *Service) servesShortLinks(host string) bool {
	return s.opts.BaseDomain == "" || host == s.opts.BaseDomain
}

// ComposeLocation appends path and query to target, joining with a single slash
// and with '&' when target already carries a query.
func ComposeLocation(target, path, rawQuery string) string {
	location := strings.TrimRight(target, "/")
	if rest := strings.TrimLeft(path, "/"); rest != "" {
		location += "/" + rest
	}
	if rawQuery != "" {
		sep := "?"
		if strings.Contains(location, "?") {
			sep = "&"
		}
		location += sep + rawQuery
	}
	return location
}
