package chat

import (
	"context"
	"testing"

	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLoader_LoadInInsertionOrder(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	lobby, _ := store.EnsureRoom(ctx, "lobby")
	other, _ := store.EnsureRoom(ctx, "other")

	_, _ = store.CreateMessage(ctx, lobby, alice, "one")
	_, _ = store.CreateMessage(ctx, other, bob, "elsewhere")
	_, _ = store.CreateMessage(ctx, lobby, bob, "two")

	messages, err := NewHistoryLoader(store).Load(ctx, lobby)
	require.NoError(t, err)

	assert.Equal(t, []HistoryEntry{
		{Author: "Alice", Body: "one"},
		{Author: "Bob", Body: "two"},
	}, Entries(messages))
	assert.Equal(t, uint64(3), watermark(messages))
}

func TestHistoryLoader_EmptyRoom(t *testing.T) {
	store := newMemStore()
	room, _ := store.EnsureRoom(context.Background(), "lobby")

	messages, err := NewHistoryLoader(store).Load(context.Background(), room)
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
	assert.Equal(t, []HistoryEntry{}, Entries(messages))
}

func TestHistoryLoader_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.failList = true

	_, err := NewHistoryLoader(store).Load(context.Background(), domain.Room{Name: "lobby"})
	assert.ErrorIs(t, err, errStoreDown)
}
