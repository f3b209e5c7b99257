package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
	"golang.org/x/sync/singleflight"
)

// RoomStore creates and looks up durable room records.
type RoomStore interface {
	EnsureRoom(ctx context.Context, name string) (domain.Room, error)
}

// Registry maps room names to room records, creating them on first use.
type Registry struct {
	store RoomStore
	group singleflight.Group

	mu    sync.RWMutex
	rooms map[string]domain.Room
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store RoomStore) *Registry {
	return &Registry{
		store: store,
		rooms: make(map[string]domain.Room),
	}
}

// EnsureRoom returns the room called name, creating the record if it does not exist.
// Concurrent first joiners share a single store call.
func (r *Registry) EnsureRoom(ctx context.Context, name string) (domain.Room, error) {
	if err := ValidateRoomName(name); err != nil {
		return domain.Room{}, err
	}
	if room, ok := r.lookup(name); ok {
		return room, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		if room, ok := r.lookup(name); ok {
			return room, nil
		}

		room, err := r.store.EnsureRoom(ctx, name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.rooms[name] = room
		r.mu.Unlock()
		return room, nil
	})
	if err != nil {
		return domain.Room{}, fmt.Errorf("ensure room %q: %w", name, err)
	}
	return v.(domain.Room), nil
}

// Rooms returns the rooms resolved by this process, ordered by name.
func (r *Registry) Rooms() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		result = append(result, room)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (r *Registry) lookup(name string) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	return room, ok
}
