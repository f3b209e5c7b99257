package chat

import domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"

// Kinds of events published on a room channel.
const (
	KindMemberJoined    = "member-joined"
	KindMemberLeft      = "member-left"
	KindChatMessage     = "chat-message"
	KindFileShare       = "file-share"
	KindHistorySnapshot = "history-snapshot"
)

// MemberJoined announces a new member together with the roster it joined into.
type MemberJoined struct {
	Member domain.Member
	Roster []domain.Member
}

// MemberLeft announces a departed member.
type MemberLeft struct {
	Member domain.Member
}

// ChatMessage carries a persisted message.
type ChatMessage struct {
	ID       uint64
	AuthorID string
	Username string
	Body     string
}

// FileShare carries a shared file. It is never persisted.
type FileShare struct {
	AuthorID string
	Username string
	DataURL  string
}

// HistorySnapshot carries the past messages of a room for a single connection.
type HistorySnapshot struct {
	Messages []domain.Message
}
