// Package webhook provides the vendor-facing call event receiver.
// This file defines the module that encapsulates webhook setup and route registration.
package webhook

import (
	apphttp "github.com/alexcopeland13/relay-isa-automation-sub001/internal/http"
	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/store"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/httpkit"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ModuleConfig combines the config interfaces the webhook module reads.
type ModuleConfig interface {
	config.WebhookConfig
	config.VoiceConfig
}

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler   *Handler
	limiter   *httpkit.IPRateLimiter
	signature gin.HandlerFunc
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(audit store.WebhookEventStore, dispatcher Dispatcher, cfg ModuleConfig, log *logger.Logger) *Module {
	vendor := cfg.GetVoiceVendorName()
	service := NewService(audit, dispatcher, vendor, log)

	var limiter *httpkit.IPRateLimiter
	if cfg.GetWebhookRateLimitRPS() > 0 {
		limiter = httpkit.NewIPRateLimiter(rate.Limit(cfg.GetWebhookRateLimitRPS()), cfg.GetWebhookRateLimitBurst(), log)
	}

	return &Module{
		handler:   NewHandler(service, vendor+" webhook"),
		limiter:   limiter,
		signature: SignatureMiddleware(cfg.GetWebhookSigningSecret()),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	post := []gin.HandlerFunc{}
	if m.limiter != nil {
		post = append(post, m.limiter.RateLimit())
	}
	post = append(post, m.signature, m.handler.HandleEvent)

	// Vendor dashboards are configured with a bare /webhook URL.
	m.mount(ctx.Engine.Group("/webhook"), post)
	m.mount(ctx.V1.Group("/webhook/voice"), post)
}

func (m *Module) mount(group *gin.RouterGroup, post []gin.HandlerFunc) {
	group.POST("", post...)
	group.GET("", m.handler.HandleStatus)
	group.OPTIONS("", m.handler.HandlePreflight)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
