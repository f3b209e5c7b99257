package chat

import (
	"context"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"github.com/mulliganw/ahsoftwareclub-website/events"
	"github.com/mulliganw/ahsoftwareclub-website/modules/broadcast"
)

// Store is the persistence backend used by the chat core.
type Store interface {
	RoomStore
	MessageStore
}

// IdentityResolver maps connection credentials to a user.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, credentials string) (domain.Identity, error)
}

// Broadcaster is the publish/subscribe fabric between sessions.
type Broadcaster interface {
	Subscribe(channel string) *broadcast.Subscription
	Unsubscribe(sub *broadcast.Subscription)
	Publish(ctx context.Context, channel, kind string, payload any) int
}

// Options tunes session behavior.
type Options struct {
	// MaxMessageLength bounds inbound message bodies in bytes.
	MaxMessageLength int
}

// Service wires the room registry, presence table, history loader and
// broadcast bus together and hands out sessions.
type Service struct {
	registry   *Registry
	presence   *Presence
	history    *HistoryLoader
	messages   MessageStore
	identities IdentityResolver
	bus        Broadcaster
	eventBus   mono.EventBus
	opts       Options
	logger     types.Logger
}

// NewService creates a new chat service.
func NewService(store Store, identities IdentityResolver, bus Broadcaster, opts Options, logger types.Logger) *Service {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = MaxMessageLength
	}
	return &Service{
		registry:   NewRegistry(store),
		presence:   NewPresence(),
		history:    NewHistoryLoader(store),
		messages:   store,
		identities: identities,
		bus:        bus,
		opts:       opts,
		logger:     logger,
	}
}

// NewSession creates a session for a connection that wants to join roomName.
// credentials are passed to the identity resolver on activation.
func (s *Service) NewSession(conn Conn, roomName, credentials string) *Session {
	id := uuid.New().String()
	return &Session{
		id:          id,
		roomName:    roomName,
		credentials: credentials,
		conn:        conn,
		svc:         s,
		logger:      s.logger.With("session", id, "room", roomName),
	}
}

// Members returns the live roster of a room.
func (s *Service) Members(room string) []domain.Member {
	return s.presence.Members(room)
}

// MemberCount returns the number of live members in a room.
func (s *Service) MemberCount(room string) int {
	return s.presence.Count(room)
}

// ActiveRooms returns the rooms that currently have members.
func (s *Service) ActiveRooms() []string {
	return s.presence.Rooms()
}

// Registry returns the room registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) emitMessageSent(msg domain.Message) {
	if s.eventBus == nil {
		return
	}
	event := events.MessageSentEvent{
		MessageID: msg.ID,
		Room:      msg.Room,
		UserID:    msg.AuthorID,
		Username:  msg.Author,
		Length:    len(msg.Body),
		Timestamp: msg.CreatedAt,
	}
	if err := events.MessageSentV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("Failed to publish MessageSent event", "room", msg.Room, "error", err)
	}
}

func (s *Service) emitFileShared(member domain.Member, size int) {
	if s.eventBus == nil {
		return
	}
	event := events.FileSharedEvent{
		Room:      member.Room,
		UserID:    member.UserID,
		Username:  member.Username,
		Size:      size,
		Timestamp: time.Now(),
	}
	if err := events.FileSharedV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("Failed to publish FileShared event", "room", member.Room, "error", err)
	}
}

func (s *Service) emitMemberJoined(member domain.Member, rosterSize int) {
	if s.eventBus == nil {
		return
	}
	event := events.MemberJoinedEvent{
		Room:       member.Room,
		SessionID:  member.Key,
		UserID:     member.UserID,
		Username:   member.Username,
		RosterSize: rosterSize,
		Timestamp:  member.JoinedAt,
	}
	if err := events.MemberJoinedV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("Failed to publish MemberJoined event", "room", member.Room, "error", err)
	}
}

func (s *Service) emitMemberLeft(member domain.Member) error {
	if s.eventBus == nil {
		return nil
	}
	event := events.MemberLeftEvent{
		Room:      member.Room,
		SessionID: member.Key,
		UserID:    member.UserID,
		Username:  member.Username,
		Timestamp: time.Now(),
	}
	return events.MemberLeftV1.Publish(s.eventBus, event, nil)
}
