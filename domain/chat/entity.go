package chat

import "time"

// ChannelPrefix distinguishes chat channels from other users of the broadcast bus.
const ChannelPrefix = "chat_"

// Room represents a chat room.
type Room struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel returns the public broadcast channel of the room.
func (r Room) Channel() string {
	return ChannelName(r.Name)
}

// ChannelName returns the broadcast channel for a room name.
func ChannelName(room string) string {
	return ChannelPrefix + room
}

// Identity is an authenticated user.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Member is one live connection of a user inside a room.
// Key identifies the connection, so one user may hold several entries.
type Member struct {
	Key      string    `json:"key"`
	Room     string    `json:"room"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message represents a persisted chat message.
type Message struct {
	ID        uint64    `json:"id"`
	Room      string    `json:"room"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
