package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/activity"
	"github.com/mulliganw/ahsoftwareclub-website/modules/auth"
	"github.com/mulliganw/ahsoftwareclub-website/modules/broadcast"
	"github.com/mulliganw/ahsoftwareclub-website/modules/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/store"
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

type fakeArchive struct {
	rooms    []store.RoomResponse
	history  map[string][]store.MessageResponse
	authors  map[string][]store.MemberResponse
	failList bool
}

func (f *fakeArchive) ListRooms(_ context.Context) ([]store.RoomResponse, error) {
	if f.failList {
		return nil, errors.New("store unavailable")
	}
	return f.rooms, nil
}

func (f *fakeArchive) GetHistory(_ context.Context, room string) ([]store.MessageResponse, error) {
	msgs, ok := f.history[room]
	if !ok {
		return nil, store.ErrNotFound
	}
	return msgs, nil
}

func (f *fakeArchive) ListMembers(_ context.Context, room string) ([]store.MemberResponse, error) {
	members, ok := f.authors[room]
	if !ok {
		return nil, store.ErrNotFound
	}
	return members, nil
}

type fakeAuth struct{}

func (fakeAuth) IssueGuestToken(_ context.Context, username string) (*auth.GuestTokenResponse, error) {
	if username == "" || strings.Contains(username, " ") {
		return nil, auth.ErrInvalidUsername
	}
	return &auth.GuestTokenResponse{
		Token:     "token-" + username,
		UserID:    "id-" + username,
		Username:  username,
		ExpiresIn: 3600,
	}, nil
}

func (fakeAuth) ValidateToken(_ context.Context, token string) (*auth.ValidateTokenResponse, error) {
	switch token {
	case "alice-token":
		return &auth.ValidateTokenResponse{Valid: true, UserID: "u-alice", Username: "alice"}, nil
	case "broken-token":
		return nil, errors.New("auth service unavailable")
	default:
		return nil, auth.ErrInvalidToken
	}
}

type fakeActivity map[string]activity.RoomActivity

func (f fakeActivity) Snapshot(room string) (activity.RoomActivity, bool) {
	a, ok := f[room]
	return a, ok
}

type fakeSource struct {
	name    string
	healthy bool
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{Healthy: f.healthy, Message: "test"}
}

// roomStore is an in-memory chat.Store.
type roomStore struct {
	mu    sync.Mutex
	rooms map[string]domain.Room
}

func (s *roomStore) EnsureRoom(_ context.Context, name string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[name]; ok {
		return room, nil
	}
	room := domain.Room{ID: uint(len(s.rooms) + 1), Name: name, CreatedAt: time.Now()}
	s.rooms[name] = room
	return room, nil
}

func (s *roomStore) CreateMessage(_ context.Context, room domain.Room, author domain.Identity, body string) (domain.Message, error) {
	return domain.Message{Room: room.Name, AuthorID: author.ID, Author: author.Username, Body: body}, nil
}

func (s *roomStore) ListMessages(_ context.Context, _ domain.Room) ([]domain.Message, error) {
	return nil, nil
}

type tokenResolver map[string]domain.Identity

func (r tokenResolver) ResolveIdentity(_ context.Context, token string) (domain.Identity, error) {
	id, ok := r[token]
	if !ok {
		return domain.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

type discardConn struct{}

func (discardConn) WriteJSON(_ any) error { return nil }

func newTestModule(t *testing.T) (*APIModule, *chat.Service) {
	t.Helper()

	logger := &mockLogger{}
	bus := broadcast.NewBus(broadcast.Options{QueueSize: 16}, logger)
	t.Cleanup(bus.Close)

	resolver := tokenResolver{
		"alice-token": {ID: "u-alice", Username: "alice"},
	}
	svc := chat.NewService(&roomStore{rooms: make(map[string]domain.Room)}, resolver, bus, chat.Options{}, logger)

	m := NewModule(Config{Addr: ":0", CORSAllowedOrigins: "*"}, svc, fakeActivity{
		"lobby": {Room: "lobby", Messages: 3, Joins: 2},
	}, logger)
	m.archive = &fakeArchive{
		rooms: []store.RoomResponse{{ID: 1, Name: "lobby"}},
		history: map[string][]store.MessageResponse{
			"lobby": {{ID: 1, AuthorID: "u-alice", Author: "alice", Body: "hi"}},
		},
		authors: map[string][]store.MemberResponse{
			"lobby": {{UserID: "u-alice", Username: "alice"}},
		},
	}
	m.auth = fakeAuth{}
	m.SetHealthSources(fakeSource{name: "store", healthy: true})
	m.app = m.newApp()
	return m, svc
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	m, _ := newTestModule(t)

	code, body := doRequest(t, m.app, "GET", "/health", "")
	assert.Equal(t, fiber.StatusOK, code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Contains(t, resp.Details, "store")

	m.SetHealthSources(fakeSource{name: "store", healthy: true}, fakeSource{name: "auth", healthy: false})
	code, body = doRequest(t, m.app, "GET", "/health", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "unhealthy", resp.Status)
}

func TestIssueGuestToken(t *testing.T) {
	m, _ := newTestModule(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid username", `{"username":"alice"}`, fiber.StatusCreated},
		{"invalid username", `{"username":"bad name"}`, fiber.StatusBadRequest},
		{"malformed body", `{"username":`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doRequest(t, m.app, "POST", "/api/v1/auth/guest", tt.body)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantCode != fiber.StatusCreated {
				return
			}
			var resp GuestResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, "token-alice", resp.Token)
			assert.Equal(t, "alice", resp.Username)
			assert.Equal(t, int64(3600), resp.ExpiresIn)
		})
	}
}

func TestListRooms(t *testing.T) {
	m, svc := newTestModule(t)

	session := svc.NewSession(discardConn{}, "lobby", "alice-token")
	require.NoError(t, session.Activate(context.Background()))
	defer session.Terminate(context.Background())

	code, body := doRequest(t, m.app, "GET", "/api/v1/rooms", "")
	require.Equal(t, fiber.StatusOK, code)

	var resp RoomListResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Rooms, 1)
	assert.Equal(t, "lobby", resp.Rooms[0].Name)
	assert.Equal(t, "chat_lobby", resp.Rooms[0].Channel)
	assert.Equal(t, 1, resp.Rooms[0].Members)
}

func TestListRoomsStoreFailure(t *testing.T) {
	m, _ := newTestModule(t)
	m.archive.(*fakeArchive).failList = true

	code, _ := doRequest(t, m.app, "GET", "/api/v1/rooms", "")
	assert.Equal(t, fiber.StatusInternalServerError, code)
}

func TestGetHistory(t *testing.T) {
	m, _ := newTestModule(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"existing room", "/api/v1/rooms/lobby/history", fiber.StatusOK},
		{"unknown room", "/api/v1/rooms/attic/history", fiber.StatusNotFound},
		{"invalid room name", "/api/v1/rooms/bad%20room/history", fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doRequest(t, m.app, "GET", tt.path, "")
			assert.Equal(t, tt.wantCode, code)
			if code != fiber.StatusOK {
				return
			}
			var resp HistoryResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			require.Len(t, resp.Messages, 1)
			assert.Equal(t, "alice", resp.Messages[0].Author)
			assert.Equal(t, "hi", resp.Messages[0].Body)
		})
	}
}

func TestGetMembers(t *testing.T) {
	m, svc := newTestModule(t)

	code, body := doRequest(t, m.app, "GET", "/api/v1/rooms/lobby/members", "")
	require.Equal(t, fiber.StatusOK, code)
	var resp MembersResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Empty(t, resp.Members)

	session := svc.NewSession(discardConn{}, "lobby", "alice-token")
	require.NoError(t, session.Activate(context.Background()))

	_, body = doRequest(t, m.app, "GET", "/api/v1/rooms/lobby/members", "")
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Members, 1)
	assert.Equal(t, "alice", resp.Members[0].Username)
	assert.Equal(t, session.ID(), resp.Members[0].SessionID)

	session.Terminate(context.Background())

	_, body = doRequest(t, m.app, "GET", "/api/v1/rooms/lobby/members", "")
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Empty(t, resp.Members)
}

func TestGetAuthors(t *testing.T) {
	m, _ := newTestModule(t)

	code, body := doRequest(t, m.app, "GET", "/api/v1/rooms/lobby/authors", "")
	require.Equal(t, fiber.StatusOK, code)
	var resp AuthorsResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Authors, 1)
	assert.Equal(t, "u-alice", resp.Authors[0].UserID)

	code, _ = doRequest(t, m.app, "GET", "/api/v1/rooms/attic/authors", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestGetActivity(t *testing.T) {
	m, _ := newTestModule(t)

	code, body := doRequest(t, m.app, "GET", "/api/v1/rooms/lobby/activity", "")
	require.Equal(t, fiber.StatusOK, code)
	var resp activity.RoomActivity
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 3, resp.Messages)

	code, _ = doRequest(t, m.app, "GET", "/api/v1/rooms/attic/activity", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestChatSocketRequiresUpgrade(t *testing.T) {
	m, _ := newTestModule(t)

	code, _ := doRequest(t, m.app, "GET", "/ws/chat/lobby", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, code)
}

func TestSocketAuth(t *testing.T) {
	m, _ := newTestModule(t)

	app := fiber.New()
	app.Use("/ws", m.socketAuth)
	app.Get("/ws/chat/:room", func(c *fiber.Ctx) error {
		token, _ := c.Locals(localToken).(string)
		return c.SendString(token)
	})

	tests := []struct {
		name     string
		upgrade  bool
		header   string
		query    string
		wantCode int
		wantBody string
	}{
		{"not an upgrade", false, "Bearer alice-token", "", fiber.StatusUpgradeRequired, ""},
		{"missing token", true, "", "", fiber.StatusUnauthorized, ""},
		{"invalid token", true, "Bearer mallory-token", "", fiber.StatusUnauthorized, ""},
		{"validation unavailable", true, "", "?token=broken-token", fiber.StatusUnauthorized, ""},
		{"valid header token", true, "Bearer alice-token", "", fiber.StatusOK, "alice-token"},
		{"valid query token", true, "", "?token=alice-token", fiber.StatusOK, "alice-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws/chat/lobby"+tt.query, nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.wantCode == fiber.StatusOK {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(bearerToken(c))
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"header", "Bearer abc", "", "abc"},
		{"query fallback", "", "?token=xyz", "xyz"},
		{"header wins", "Bearer abc", "?token=xyz", "abc"},
		{"non bearer header", "Basic abc", "?token=xyz", "xyz"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestStartRequiresDependencies(t *testing.T) {
	m := NewModule(Config{Addr: ":0"}, nil, fakeActivity{}, &mockLogger{})
	assert.Error(t, m.Start(context.Background()))
}
