package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/broadcast"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store.
type memStore struct {
	mu          sync.Mutex
	rooms       map[string]domain.Room
	messages    []domain.Message
	nextRoomID  uint
	nextMsgID   uint64
	ensureCalls int

	failEnsure bool
	failCreate bool
	failList   bool

	// beforeList and afterList run outside the lock around ListMessages.
	beforeList func()
	afterList  func()
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[string]domain.Room)}
}

func (s *memStore) EnsureRoom(_ context.Context, name string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureCalls++
	if s.failEnsure {
		return domain.Room{}, errStoreDown
	}
	if room, ok := s.rooms[name]; ok {
		return room, nil
	}
	s.nextRoomID++
	room := domain.Room{ID: s.nextRoomID, Name: name, CreatedAt: time.Now()}
	s.rooms[name] = room
	return room, nil
}

func (s *memStore) CreateMessage(_ context.Context, room domain.Room, author domain.Identity, body string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate {
		return domain.Message{}, errStoreDown
	}
	s.nextMsgID++
	msg := domain.Message{
		ID:        s.nextMsgID,
		Room:      room.Name,
		AuthorID:  author.ID,
		Author:    author.Username,
		Body:      body,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *memStore) ListMessages(_ context.Context, room domain.Room) ([]domain.Message, error) {
	if s.beforeList != nil {
		s.beforeList()
	}

	s.mu.Lock()
	var result []domain.Message
	fail := s.failList
	for _, msg := range s.messages {
		if msg.Room == room.Name {
			result = append(result, msg)
		}
	}
	s.mu.Unlock()

	if s.afterList != nil {
		s.afterList()
	}
	if fail {
		return nil, errStoreDown
	}
	return result, nil
}

func (s *memStore) roomMessages(room string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Message
	for _, msg := range s.messages {
		if msg.Room == room {
			result = append(result, msg)
		}
	}
	return result
}

// tokenResolver treats the credentials as a key into a fixed identity table.
type tokenResolver map[string]domain.Identity

func (r tokenResolver) ResolveIdentity(_ context.Context, token string) (domain.Identity, error) {
	identity, ok := r[token]
	if !ok {
		return domain.Identity{}, errors.New("unauthenticated")
	}
	return identity, nil
}

// wireFrame is the union of all outbound frames.
type wireFrame struct {
	Type          string         `json:"type"`
	Message       string         `json:"message"`
	Username      string         `json:"username"`
	UserID        string         `json:"userID"`
	DataURL       string         `json:"dataURL"`
	ActiveUsers   []string       `json:"activeUsers"`
	ActiveUserIDs []string       `json:"activeUserIDs"`
	Messages      []HistoryEntry `json:"messages"`
}

// fakeConn records every frame written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []wireFrame
	err    error
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) all() []wireFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wireFrame(nil), c.frames...)
}

func (c *fakeConn) ofType(frameType string) []wireFrame {
	var result []wireFrame
	for _, f := range c.all() {
		if f.Type == frameType {
			result = append(result, f)
		}
	}
	return result
}

func (c *fakeConn) types() []string {
	var result []string
	for _, f := range c.all() {
		result = append(result, f.Type)
	}
	return result
}

var (
	alice = domain.Identity{ID: "u-alice", Username: "Alice"}
	bob   = domain.Identity{ID: "u-bob", Username: "Bob"}
	carol = domain.Identity{ID: "u-carol", Username: "Carol"}
)

type testEnv struct {
	store *memStore
	bus   *broadcast.Bus
	svc   *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	bus := broadcast.NewBus(broadcast.Options{QueueSize: 64, SlowSubscriberTimeout: 10 * time.Millisecond}, &mockLogger{})
	t.Cleanup(bus.Close)

	resolver := tokenResolver{"alice": alice, "bob": bob, "carol": carol}
	svc := NewService(store, resolver, bus, Options{MaxMessageLength: 100}, &mockLogger{})
	return &testEnv{store: store, bus: bus, svc: svc}
}

// join activates a session for token in room and fails the test on error.
func (e *testEnv) join(t *testing.T, room, token string) (*Session, *fakeConn) {
	t.Helper()

	conn := &fakeConn{}
	session := e.svc.NewSession(conn, room, token)
	require.NoError(t, session.Activate(context.Background()))
	return session, conn
}

// drain delivers every queued bus event to the session.
func drain(t *testing.T, s *Session) {
	t.Helper()
	for {
		select {
		case ev, ok := <-s.sub.Events():
			if !ok {
				return
			}
			require.NoError(t, s.OnBusEvent(ev))
		default:
			return
		}
	}
}

func send(t *testing.T, s *Session, frame InboundFrame) {
	t.Helper()
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, s.HandleInbound(context.Background(), raw))
}
