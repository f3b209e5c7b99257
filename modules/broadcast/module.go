package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule owns the process-wide Bus that room sessions publish to.
type BroadcastModule struct {
	bus    *Bus
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(opts Options, logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		bus:    NewBus(opts, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the module. The bus needs no background work.
func (m *BroadcastModule) Start(_ context.Context) error {
	m.logger.Info("Broadcast bus ready",
		"queue_size", m.bus.opts.QueueSize,
		"slow_subscriber_timeout", m.bus.opts.SlowSubscriberTimeout.String())
	return nil
}

// Stop closes every inbox so that sessions still running observe the shutdown.
func (m *BroadcastModule) Stop(_ context.Context) error {
	stats := m.bus.Stats()
	m.bus.Close()
	m.logger.Info("Broadcast bus stopped",
		"subscribers", stats.Subscribers,
		"published", stats.Published,
		"dropped", stats.Dropped)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	stats := m.bus.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"channels":    stats.Channels,
			"subscribers": stats.Subscribers,
			"published":   stats.Published,
			"dropped":     stats.Dropped,
		},
	}
}

// Bus returns the bus for the chat module to use.
func (m *BroadcastModule) Bus() *Bus {
	return m.bus
}
