package store

import "time"

// Service names registered by the store module.
const (
	ServiceListRooms   = "list-rooms"
	ServiceGetHistory  = "get-history"
	ServiceListMembers = "list-members"
)

// ListRoomsRequest is the request for listing rooms.
type ListRoomsRequest struct{}

// RoomResponse represents a room in responses.
type RoomResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRoomsResponse is the response for listing rooms.
type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// GetHistoryRequest is the request for a room's message history.
type GetHistoryRequest struct {
	Room string `json:"room"`
}

// MessageResponse represents a persisted message in responses.
type MessageResponse struct {
	ID        uint64    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// GetHistoryResponse is the response for a room's message history.
type GetHistoryResponse struct {
	Found    bool              `json:"found"`
	Room     string            `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

// ListMembersRequest is the request for the users who posted in a room.
type ListMembersRequest struct {
	Room string `json:"room"`
}

// MemberResponse represents a user in responses.
type MemberResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ListMembersResponse is the response for the users who posted in a room.
type ListMembersResponse struct {
	Found   bool             `json:"found"`
	Room    string           `json:"room"`
	Members []MemberResponse `json:"members"`
}
