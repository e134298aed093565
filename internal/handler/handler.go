package handler

import (
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/metrics"
	"github.com/yetla/redirector/internal/middleware"
	"github.com/yetla/redirector/internal/service"
	"github.com/yetla/redirector/internal/view"
)

type Handler struct {
	service       *service.Service
	codec         *auth.SessionCodec
	authenticator *middleware.Authenticator
	views         *view.Renderer
	metrics       *metrics.Metrics
	cookie        auth.CookieOptions
	logger        *zap.Logger
}

func NewHandler(
	service *service.Service,
	codec *auth.SessionCodec,
	views *view.Renderer,
	metrics *metrics.Metrics,
	cookie auth.CookieOptions,
	logger *zap.Logger,
) *Handler {
	resolver := auth.NewResolver(service, codec, logger)
	h := &Handler{
		service:       service,
		codec:         codec,
		authenticator: middleware.NewAuthenticator(resolver, logger),
		views:         views,
		metrics:       metrics,
		cookie:        cookie,
		logger:        logger,
	}
	h.authenticator.OnFailure(h.writeStatus)
	return h
}
