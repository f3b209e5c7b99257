package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"

	"github.com/mulliganw/ahsoftwareclub-website/modules/chat"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Pings are sent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Upper bound on aggregating module health for GET /health.
	healthTimeout = 5 * time.Second

	// Buffered inbound frames per connection.
	inboundBuffer = 64
)

// wsConn serializes writes to a websocket connection. The session and the
// ping loop write from different goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) closeWith(code int, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// handleChatSocket bridges one websocket connection to a chat session.
// It does not return until every goroutine using c has exited.
func (m *APIModule) handleChatSocket(c *websocket.Conn) {
	room := c.Params("room")
	token, _ := c.Locals(localToken).(string)

	conn := &wsConn{conn: c}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := m.chat.NewSession(conn, room, token)
	logger := m.logger.With("session_id", session.ID(), "room", room)

	if err := session.Activate(ctx); err != nil {
		var activationErr *chat.ActivationError
		if errors.As(err, &activationErr) {
			logger.Warn("Rejecting connection", "step", activationErr.Step, "error", activationErr.Err)
		} else {
			logger.Warn("Rejecting connection", "error", err)
		}
		conn.closeWith(websocket.ClosePolicyViolation, "unable to join room")
		_ = c.Close()
		return
	}

	m.connections.Add(1)
	defer m.connections.Add(-1)
	if member, ok := session.Member(); ok {
		logger = logger.With("user", member.UserID)
		logger.Info("Client connected", "username", member.Username)
	}

	frames := make(chan []byte, inboundBuffer)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(frames)
		m.readLoop(ctx, c, frames, logger)
	}()
	go func() {
		defer wg.Done()
		pingLoop(ctx, conn, logger)
	}()

	err := session.Run(ctx, frames)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Session ended", "error", err)
	}

	session.Terminate(context.Background())
	cancel()
	_ = c.Close()
	wg.Wait()

	logger.Info("Client disconnected")
}

// readLoop forwards client frames until the connection fails or ctx ends.
// Frames above the configured rate are dropped.
func (m *APIModule) readLoop(ctx context.Context, c *websocket.Conn, frames chan<- []byte, logger types.Logger) {
	if m.cfg.MaxFrameBytes > 0 {
		c.SetReadLimit(m.cfg.MaxFrameBytes)
	}
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if m.cfg.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(m.cfg.MessagesPerSecond), max(m.cfg.MessageBurst, 1))
	}

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !limiter.Allow() {
			logger.Debug("Dropping frame over rate limit")
			continue
		}

		select {
		case frames <- data:
		case <-ctx.Done():
			return
		}
	}
}

// pingLoop keeps the connection alive until ctx ends or a ping fails.
func pingLoop(ctx context.Context, conn *wsConn, logger types.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				logger.Debug("WebSocket ping failed", "error", err)
				return
			}
		}
	}
}
