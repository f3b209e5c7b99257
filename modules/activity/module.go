package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/mulliganw/ahsoftwareclub-website/events"
)

// RoomActivity holds the counters of one room.
type RoomActivity struct {
	Room         string    `json:"room"`
	Messages     int       `json:"messages"`
	Files        int       `json:"files"`
	FileBytes    int       `json:"file_bytes"`
	Joins        int       `json:"joins"`
	Leaves       int       `json:"leaves"`
	PeakRoster   int       `json:"peak_roster"`
	LastActivity time.Time `json:"last_activity"`
}

// ActivityModule keeps per-room activity counters fed by chat domain events.
type ActivityModule struct {
	mu     sync.RWMutex
	rooms  map[string]*RoomActivity
	logger types.Logger
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

func NewModule(logger types.Logger) *ActivityModule {
	return &ActivityModule{
		rooms:  make(map[string]*RoomActivity),
		logger: logger,
	}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageSentV1, m.handleMessageSent, m); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FileSharedV1, m.handleFileShared, m); err != nil {
		return fmt.Errorf("failed to register FileShared consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberJoinedV1, m.handleMemberJoined, m); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberLeftV1, m.handleMemberLeft, m); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"MessageSent", "FileShared", "MemberJoined", "MemberLeft"})
	return nil
}

func (m *ActivityModule) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.update(event.Room, event.Timestamp, func(a *RoomActivity) {
		a.Messages++
	})
	return nil
}

func (m *ActivityModule) handleFileShared(_ context.Context, event events.FileSharedEvent, _ *mono.Msg) error {
	m.update(event.Room, event.Timestamp, func(a *RoomActivity) {
		a.Files++
		a.FileBytes += event.Size
	})
	return nil
}

func (m *ActivityModule) handleMemberJoined(_ context.Context, event events.MemberJoinedEvent, _ *mono.Msg) error {
	m.update(event.Room, event.Timestamp, func(a *RoomActivity) {
		a.Joins++
		if event.RosterSize > a.PeakRoster {
			a.PeakRoster = event.RosterSize
		}
	})
	m.logger.Debug("Member joined", "room", event.Room, "user", event.UserID, "roster_size", event.RosterSize)
	return nil
}

func (m *ActivityModule) handleMemberLeft(_ context.Context, event events.MemberLeftEvent, _ *mono.Msg) error {
	m.update(event.Room, event.Timestamp, func(a *RoomActivity) {
		a.Leaves++
	})
	m.logger.Debug("Member left", "room", event.Room, "user", event.UserID)
	return nil
}

// update applies fn to the counters of room. Events may arrive out of order,
// so LastActivity only moves forward.
func (m *ActivityModule) update(room string, at time.Time, fn func(*RoomActivity)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.rooms[room]
	if !ok {
		a = &RoomActivity{Room: room}
		m.rooms[room] = a
	}
	fn(a)
	if at.After(a.LastActivity) {
		a.LastActivity = at
	}
}

// Snapshot returns the counters of room.
func (m *ActivityModule) Snapshot(room string) (RoomActivity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.rooms[room]
	if !ok {
		return RoomActivity{Room: room}, false
	}
	return *a, true
}

// All returns the counters of every room seen so far, ordered by room name.
func (m *ActivityModule) All() []RoomActivity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]RoomActivity, 0, len(m.rooms))
	for _, a := range m.rooms {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Room < result[j].Room })
	return result
}

func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Activity module started - listening for chat events")
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped", "rooms", len(m.All()))
	return nil
}

func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := 0
	for _, a := range m.rooms {
		messages += a.Messages
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":    len(m.rooms),
			"messages": messages,
		},
	}
}
