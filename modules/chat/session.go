package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/broadcast"
)

// ErrSessionClosed is returned when a session is used outside the Joined state.
var ErrSessionClosed = errors.New("session is not joined")

// State is the lifecycle state of a session.
type State int

// Session states. Terminated is final.
const (
	StateConnecting State = iota
	StateJoined
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Activation steps reported by ActivationError.
const (
	StepIdentity = "identity"
	StepRegistry = "registry"
)

// ActivationError reports why a session could not join its room.
// The session is already terminated when it is returned.
type ActivationError struct {
	Step string
	Err  error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activation failed at %s: %v", e.Step, e.Err)
}

func (e *ActivationError) Unwrap() error {
	return e.Err
}

// Conn is the outbound half of a client connection.
type Conn interface {
	WriteJSON(v any) error
}

// Session is one client connection inside one room.
//
// Activate and Terminate may be called from any goroutine. Inbound frames and
// bus events are handled by Run on a single goroutine, so a client's own send
// is never interleaved with the echo of that send.
type Session struct {
	id          string
	roomName    string
	credentials string
	conn        Conn
	svc         *Service
	logger      types.Logger

	mu       sync.Mutex
	state    State
	identity domain.Identity
	room     domain.Room
	member   domain.Member
	sub      *broadcast.Subscription

	// Set by Activate before Run starts; owned by the Run goroutine afterwards.
	history        []domain.Message
	historyPending bool
	watermark      uint64

	terminateOnce sync.Once
}

// ID returns the connection identity of the session.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Member returns the presence entry of a joined session.
func (s *Session) Member() (domain.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member, s.state == StateJoined
}

// Activate joins the room. On failure the session is terminated without any
// presence or broadcast side effect and an *ActivationError is returned.
func (s *Session) Activate(ctx context.Context) error {
	if s.State() != StateConnecting {
		return ErrSessionClosed
	}

	identity, err := s.svc.identities.ResolveIdentity(ctx, s.credentials)
	if err != nil {
		return s.abort(ctx, StepIdentity, err)
	}

	room, err := s.svc.registry.EnsureRoom(ctx, s.roomName)
	if err != nil {
		return s.abort(ctx, StepRegistry, err)
	}

	// Subscribe before joining presence: a member joining concurrently then
	// shows up either in our roster or through its own member-joined event.
	sub := s.svc.bus.Subscribe(room.Channel())
	member := domain.Member{
		Key:      s.id,
		Room:     room.Name,
		UserID:   identity.ID,
		Username: identity.Username,
		JoinedAt: time.Now(),
	}
	roster := s.svc.presence.Join(room.Name, member)

	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		s.svc.presence.Leave(room.Name, member.Key)
		s.svc.bus.Unsubscribe(sub)
		return ErrSessionClosed
	}
	s.identity = identity
	s.room = room
	s.member = member
	s.sub = sub
	s.state = StateJoined
	s.logger = s.logger.With("user", identity.ID)
	s.mu.Unlock()

	s.svc.bus.Publish(ctx, room.Channel(), KindMemberJoined, MemberJoined{Member: member, Roster: roster})
	s.svc.emitMemberJoined(member, len(roster))

	if len(roster) > 1 {
		messages, err := s.svc.history.Load(ctx, room)
		if err != nil {
			s.logger.Warn("Failed to load room history", "error", err)
		} else {
			s.history = messages
			s.historyPending = true
			s.watermark = watermark(messages)
		}
	}

	s.logger.Info("Session joined room", "username", identity.Username, "roster_size", len(roster))
	return nil
}

func (s *Session) abort(ctx context.Context, step string, err error) error {
	s.logger.Warn("Session activation failed", "step", step, "error", err)
	s.Terminate(ctx)
	return &ActivationError{Step: step, Err: err}
}

// Run handles inbound frames and bus events until frames is closed, ctx is
// done, the subscription is closed or a write to the connection fails.
func (s *Session) Run(ctx context.Context, frames <-chan []byte) error {
	s.mu.Lock()
	sub := s.sub
	joined := s.state == StateJoined
	s.mu.Unlock()
	if !joined {
		return ErrSessionClosed
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-frames:
			if !ok {
				return nil
			}
			if err := s.HandleInbound(ctx, raw); err != nil {
				return err
			}
		case ev, ok := <-sub.Events():
			if !ok {
				return ErrSessionClosed
			}
			if err := s.OnBusEvent(ev); err != nil {
				return err
			}
		}
	}
}

// HandleInbound dispatches one client frame. Malformed frames, unknown types
// and invalid payloads are dropped. Only leaving the Joined state is an error.
func (s *Session) HandleInbound(ctx context.Context, raw []byte) error {
	if s.State() != StateJoined {
		return ErrSessionClosed
	}

	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.Debug("Dropping malformed frame", "error", err)
		return nil
	}

	switch frame.Type {
	case InboundMessage:
		s.handleMessage(ctx, frame.Message)
	case InboundFile:
		s.handleFile(ctx, frame.DataURL)
	default:
		s.logger.Debug("Ignoring unrecognized frame", "type", frame.Type)
	}
	return nil
}

// handleMessage persists the message before publishing it, so a history
// snapshot taken after the write always contains it.
func (s *Session) handleMessage(ctx context.Context, body string) {
	if err := ValidateMessage(body, s.svc.opts.MaxMessageLength); err != nil {
		s.logger.Debug("Dropping invalid message", "error", err)
		return
	}

	msg, err := s.svc.messages.CreateMessage(ctx, s.room, s.identity, body)
	if err != nil {
		s.logger.Error("Failed to persist message", "error", err)
		return
	}

	s.svc.bus.Publish(ctx, s.room.Channel(), KindChatMessage, ChatMessage{
		ID:       msg.ID,
		AuthorID: s.identity.ID,
		Username: s.identity.Username,
		Body:     body,
	})
	s.svc.emitMessageSent(msg)
}

func (s *Session) handleFile(ctx context.Context, dataURL string) {
	if err := ValidateDataURL(dataURL); err != nil {
		s.logger.Debug("Dropping invalid file", "error", err)
		return
	}

	s.svc.bus.Publish(ctx, s.room.Channel(), KindFileShare, FileShare{
		AuthorID: s.identity.ID,
		Username: s.identity.Username,
		DataURL:  dataURL,
	})
	s.svc.emitFileShared(s.member, len(dataURL))
}

// OnBusEvent writes the client frame for a room event.
// Only write failures are returned.
func (s *Session) OnBusEvent(ev broadcast.Event) error {
	switch p := ev.Payload.(type) {
	case MemberJoined:
		if err := s.write(newConnectFrame(p)); err != nil {
			return err
		}
		if p.Member.Key == s.id && s.historyPending {
			s.historyPending = false
			history := s.history
			s.history = nil
			return s.OnBusEvent(broadcast.Event{
				Channel: ev.Channel,
				Kind:    KindHistorySnapshot,
				Payload: HistorySnapshot{Messages: history},
			})
		}
		return nil
	case MemberLeft:
		return s.write(DisconnectFrame{Type: OutboundDisconnect, UserID: p.Member.UserID})
	case ChatMessage:
		if p.ID <= s.watermark {
			return nil
		}
		return s.write(MessageFrame{Type: OutboundMessage, Message: p.Body, Username: p.Username})
	case FileShare:
		return s.write(FileFrame{Type: OutboundFile, DataURL: p.DataURL, Username: p.Username})
	case HistorySnapshot:
		return s.write(newLoadFrame(p.Messages))
	default:
		s.logger.Debug("Ignoring unknown bus event", "kind", ev.Kind)
		return nil
	}
}

func (s *Session) write(frame any) error {
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Terminate leaves the room. It runs once however often it is called; every
// cleanup step runs even if an earlier one fails.
func (s *Session) Terminate(ctx context.Context) {
	s.terminateOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateTerminated
		room, member, sub := s.room, s.member, s.sub
		s.mu.Unlock()

		if prev != StateJoined {
			s.logger.Debug("Session terminated before joining")
			return
		}

		// Detach our own inbox first: nothing drains it any more, and a full
		// inbox would make the member-left publish wait on it.
		s.cleanup("unsubscribe", func() error {
			s.svc.bus.Unsubscribe(sub)
			return nil
		})
		// Leave before publishing, so a member that still sees us in its
		// roster subscribed early enough to receive member-left.
		s.cleanup("leave presence", func() error {
			s.svc.presence.Leave(room.Name, member.Key)
			return nil
		})
		s.cleanup("publish member-left", func() error {
			s.svc.bus.Publish(ctx, room.Channel(), KindMemberLeft, MemberLeft{Member: member})
			return nil
		})
		s.cleanup("emit member-left", func() error {
			return s.svc.emitMemberLeft(member)
		})

		s.logger.Info("Session left room")
	})
}

func (s *Session) cleanup(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Cleanup step panicked", "step", step, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		s.logger.Warn("Cleanup step failed", "step", step, "error", err)
	}
}
