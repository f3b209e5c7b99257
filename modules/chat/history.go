package chat

import (
	"context"
	"fmt"

	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
)

// MessageStore persists and lists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, room domain.Room, author domain.Identity, body string) (domain.Message, error)
	ListMessages(ctx context.Context, room domain.Room) ([]domain.Message, error)
}

// HistoryEntry is a past message as shown to a joining client.
type HistoryEntry struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// HistoryLoader reads the persisted history of a room.
type HistoryLoader struct {
	store MessageStore
}

// NewHistoryLoader creates a new history loader.
func NewHistoryLoader(store MessageStore) *HistoryLoader {
	return &HistoryLoader{store: store}
}

// Load returns every message of room in insertion order.
func (h *HistoryLoader) Load(ctx context.Context, room domain.Room) ([]domain.Message, error) {
	messages, err := h.store.ListMessages(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("load history of %q: %w", room.Name, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// Entries strips messages down to author name and body.
func Entries(messages []domain.Message) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, HistoryEntry{Author: msg.Author, Body: msg.Body})
	}
	return entries
}

// watermark returns the highest message id in messages.
func watermark(messages []domain.Message) uint64 {
	var highest uint64
	for _, msg := range messages {
		if msg.ID > highest {
			highest = msg.ID
		}
	}
	return highest
}
