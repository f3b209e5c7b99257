package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/auth"
	"github.com/mulliganw/ahsoftwareclub-website/modules/chat"
	"github.com/mulliganw/ahsoftwareclub-website/modules/store"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", m.socketAuth)
	app.Get("/ws/chat/:room", websocket.New(m.handleChatSocket))

	// REST API v1
	api := app.Group("/api/v1")

	api.Post("/auth/guest", m.issueGuestToken)

	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:name/history", m.getHistory)
	api.Get("/rooms/:name/members", m.getMembers)
	api.Get("/rooms/:name/authors", m.getAuthors)
	api.Get("/rooms/:name/activity", m.getActivity)
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter since browsers cannot set headers on websockets.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("token")
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "healthy"
	details := make(map[string]any, len(m.sources))
	for _, source := range m.sources {
		health := source.Health(ctx)
		if !health.Healthy {
			status = "unhealthy"
		}
		details[source.Name()] = fiber.Map{
			"healthy": health.Healthy,
			"message": health.Message,
			"details": health.Details,
		}
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(HealthResponse{
		Status:  status,
		Details: details,
	})
}

// issueGuestToken handles POST /api/v1/auth/guest.
func (m *APIModule) issueGuestToken(c *fiber.Ctx) error {
	var req GuestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	guest, err := m.auth.IssueGuestToken(c.UserContext(), req.Username)
	if errors.Is(err, auth.ErrInvalidUsername) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: auth.ErrInvalidUsername.Error(),
		})
	}
	if err != nil {
		m.logger.Error("Failed to issue guest token", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "token_failed",
			Message: "Failed to issue token",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(GuestResponse{
		Token:     guest.Token,
		UserID:    guest.UserID,
		Username:  guest.Username,
		ExpiresIn: guest.ExpiresIn,
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.archive.ListRooms(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}

	response := RoomListResponse{
		Rooms: make([]RoomResponse, 0, len(rooms)),
	}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, RoomResponse{
			ID:        room.ID,
			Name:      room.Name,
			Channel:   domain.ChannelName(room.Name),
			CreatedAt: room.CreatedAt,
			Members:   m.chat.MemberCount(room.Name),
		})
	}

	return c.JSON(response)
}

// getHistory handles GET /api/v1/rooms/:name/history.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := chat.ValidateRoomName(name); err != nil {
		return invalidRoom(c, err)
	}

	messages, err := m.archive.GetHistory(c.UserContext(), name)
	if errors.Is(err, store.ErrNotFound) {
		return roomNotFound(c)
	}
	if err != nil {
		m.logger.Error("Failed to get history", "room", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "history_failed",
			Message: "Failed to get history",
		})
	}

	response := HistoryResponse{
		Room:     name,
		Messages: make([]MessageResponse, 0, len(messages)),
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, MessageResponse{
			ID:        msg.ID,
			UserID:    msg.AuthorID,
			Author:    msg.Author,
			Body:      msg.Body,
			CreatedAt: msg.CreatedAt,
		})
	}

	return c.JSON(response)
}

// getMembers handles GET /api/v1/rooms/:name/members.
func (m *APIModule) getMembers(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := chat.ValidateRoomName(name); err != nil {
		return invalidRoom(c, err)
	}

	members := m.chat.Members(name)
	response := MembersResponse{
		Room:    name,
		Members: make([]MemberResponse, 0, len(members)),
	}
	for _, member := range members {
		response.Members = append(response.Members, MemberResponse{
			SessionID: member.Key,
			UserID:    member.UserID,
			Username:  member.Username,
			JoinedAt:  member.JoinedAt,
		})
	}

	return c.JSON(response)
}

// getAuthors handles GET /api/v1/rooms/:name/authors.
func (m *APIModule) getAuthors(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := chat.ValidateRoomName(name); err != nil {
		return invalidRoom(c, err)
	}

	authors, err := m.archive.ListMembers(c.UserContext(), name)
	if errors.Is(err, store.ErrNotFound) {
		return roomNotFound(c)
	}
	if err != nil {
		m.logger.Error("Failed to list authors", "room", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "authors_failed",
			Message: "Failed to list authors",
		})
	}

	response := AuthorsResponse{
		Room:    name,
		Authors: make([]AuthorResponse, 0, len(authors)),
	}
	for _, a := range authors {
		response.Authors = append(response.Authors, AuthorResponse{UserID: a.UserID, Username: a.Username})
	}

	return c.JSON(response)
}

// getActivity handles GET /api/v1/rooms/:name/activity.
func (m *APIModule) getActivity(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := chat.ValidateRoomName(name); err != nil {
		return invalidRoom(c, err)
	}

	snapshot, ok := m.activity.Snapshot(name)
	if !ok {
		return roomNotFound(c)
	}
	return c.JSON(snapshot)
}

func invalidRoom(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func roomNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: "Room not found",
	})
}
