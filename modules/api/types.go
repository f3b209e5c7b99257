package api

import "time"

// GuestRequest is the API request for a guest token.
type GuestRequest struct {
	Username string `json:"username"`
}

// GuestResponse is the API response carrying a guest token.
type GuestResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ExpiresIn int64  `json:"expires_in"`
}

// RoomResponse is the API response for a room.
type RoomResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
	Members   int       `json:"members"`
}

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// MessageResponse is the API response for a message.
type MessageResponse struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	Room     string            `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

// MemberResponse is the API response for a connected member.
type MemberResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	JoinedAt  time.Time `json:"joined_at"`
}

// MembersResponse is the API response for a room's live roster.
type MembersResponse struct {
	Room    string           `json:"room"`
	Members []MemberResponse `json:"members"`
}

// AuthorResponse is the API response for a user who posted in a room.
type AuthorResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// AuthorsResponse is the API response for a room's authors.
type AuthorsResponse struct {
	Room    string           `json:"room"`
	Authors []AuthorResponse `json:"authors"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
