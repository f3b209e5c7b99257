package chat

import domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"

// Inbound frame types.
const (
	InboundMessage = "message"
	InboundFile    = "file"
)

// Outbound frame types.
const (
	OutboundMessage    = "chat_message"
	OutboundConnect    = "chat_connect"
	OutboundDisconnect = "chat_disconnect"
	OutboundFile       = "chat_file"
	OutboundLoad       = "chat_load"
)

// InboundFrame is a client frame. Type selects which other field is used.
type InboundFrame struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	DataURL string `json:"dataURL,omitempty"`
}

// MessageFrame delivers a chat message.
type MessageFrame struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// ConnectFrame announces a join along with the room's roster.
type ConnectFrame struct {
	Type          string   `json:"type"`
	Username      string   `json:"username"`
	ActiveUsers   []string `json:"activeUsers"`
	ActiveUserIDs []string `json:"activeUserIDs"`
}

// DisconnectFrame announces that a user left.
type DisconnectFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userID"`
}

// FileFrame delivers a shared file.
type FileFrame struct {
	Type     string `json:"type"`
	DataURL  string `json:"dataURL"`
	Username string `json:"username"`
}

// LoadFrame delivers the room history.
type LoadFrame struct {
	Type     string         `json:"type"`
	Messages []HistoryEntry `json:"messages"`
}

func newConnectFrame(ev MemberJoined) ConnectFrame {
	frame := ConnectFrame{
		Type:          OutboundConnect,
		Username:      ev.Member.Username,
		ActiveUsers:   make([]string, 0, len(ev.Roster)),
		ActiveUserIDs: make([]string, 0, len(ev.Roster)),
	}
	for _, m := range ev.Roster {
		frame.ActiveUsers = append(frame.ActiveUsers, m.Username)
		frame.ActiveUserIDs = append(frame.ActiveUserIDs, m.UserID)
	}
	return frame
}

func newLoadFrame(messages []domain.Message) LoadFrame {
	return LoadFrame{Type: OutboundLoad, Messages: Entries(messages)}
}
