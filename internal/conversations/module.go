// This file defines the module that encapsulates conversation admin routes.
package conversations

import (
	"context"

	apphttp "github.com/alexcopeland13/relay-isa-automation-sub001/internal/http"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/validator"
)

// ReprocessQueue schedules a reprocess outside the request.
type ReprocessQueue interface {
	EnqueueReprocess(ctx context.Context, callSID string, steps []string) error
}

// Module is the conversations bounded context module implementing http.Module.
type Module struct {
	service *Service
	handler *Handler
}

// NewModule wires the admin handler around an existing service.
func NewModule(service *Service, queue ReprocessQueue, val *validator.Validator) *Module {
	return &Module{
		service: service,
		handler: NewHandler(service, queue, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversations"
}

// Service exposes the state machine to the webhook module and workers.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts admin routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	admin := ctx.Admin.Group("/conversations")
	admin.GET("/:callSid", m.handler.GetConversation)
	admin.POST("/:callSid/reprocess", m.handler.ReprocessConversation)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
