package chat

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/mulliganw/ahsoftwareclub-website/events"
)

// ChatModule hosts the room session core and emits chat domain events.
type ChatModule struct {
	service *Service
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*ChatModule)(nil)
	_ mono.EventBusAwareModule   = (*ChatModule)(nil)
	_ mono.EventEmitterModule    = (*ChatModule)(nil)
	_ mono.HealthCheckableModule = (*ChatModule)(nil)
)

// NewModule creates a new chat module.
func NewModule(store Store, identities IdentityResolver, bus Broadcaster, opts Options, logger types.Logger) *ChatModule {
	return &ChatModule{
		service: NewService(store, identities, bus, opts, logger),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *ChatModule) SetEventBus(bus mono.EventBus) {
	m.service.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *ChatModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.FileSharedV1.ToBase(),
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
	}
}

// Start starts the module.
func (m *ChatModule) Start(_ context.Context) error {
	m.logger.Info("Chat module started", "max_message_length", m.service.opts.MaxMessageLength)
	return nil
}

// Stop stops the module. Open sessions are closed by the transport.
func (m *ChatModule) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped", "active_rooms", len(m.service.ActiveRooms()))
	return nil
}

// Health returns the health status.
func (m *ChatModule) Health(_ context.Context) mono.HealthStatus {
	rooms := m.service.ActiveRooms()
	members := 0
	for _, room := range rooms {
		members += m.service.MemberCount(room)
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_rooms":   len(rooms),
			"members":        members,
			"resolved_rooms": len(m.service.Registry().Rooms()),
		},
	}
}

// Service returns the chat service.
func (m *ChatModule) Service() *Service {
	return m.service
}
