package chat

import (
	"slices"
	"sync"

	domain "github.com/mulliganw/ahsoftwareclub-website/domain/chat"
)

// Presence tracks the members currently connected to each room.
// Rooms are locked independently so joins in one room never wait on another.
type Presence struct {
	mu    sync.Mutex
	rooms map[string]*roster
}

type roster struct {
	mu      sync.Mutex
	members []domain.Member
	// dead is set once the roster has been removed from the table.
	dead bool
}

// NewPresence creates an empty presence table.
func NewPresence() *Presence {
	return &Presence{
		rooms: make(map[string]*roster),
	}
}

// Join adds member to room and returns the roster right after the join, in join order.
// Joining again with the same key refreshes the entry without moving it.
func (p *Presence) Join(room string, member domain.Member) []domain.Member {
	for {
		r := p.rosterFor(room)

		r.mu.Lock()
		if r.dead {
			r.mu.Unlock()
			continue
		}

		idx := indexOf(r.members, member.Key)
		if idx >= 0 {
			r.members[idx] = member
		} else {
			r.members = append(r.members, member)
		}
		snapshot := slices.Clone(r.members)
		r.mu.Unlock()

		return snapshot
	}
}

// Leave removes the member with key from room. Leaving twice is a no-op.
// It reports whether a member was removed.
func (p *Presence) Leave(room, key string) bool {
	p.mu.Lock()
	r, ok := p.rooms[room]
	p.mu.Unlock()
	if !ok {
		return false
	}

	r.mu.Lock()
	idx := indexOf(r.members, key)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.members = slices.Delete(r.members, idx, idx+1)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		p.reap(room, r)
	}
	return true
}

// Members returns the members of room in join order.
func (p *Presence) Members(room string) []domain.Member {
	p.mu.Lock()
	r, ok := p.rooms[room]
	p.mu.Unlock()
	if !ok {
		return []domain.Member{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

// Count returns the number of members in room.
func (p *Presence) Count(room string) int {
	p.mu.Lock()
	r, ok := p.rooms[room]
	p.mu.Unlock()
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Rooms returns the names of rooms with at least one member, sorted.
func (p *Presence) Rooms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.rooms))
	for name := range p.rooms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (p *Presence) rosterFor(room string) *roster {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.rooms[room]
	if !ok {
		r = &roster{}
		p.rooms[room] = r
	}
	return r
}

// reap drops an empty roster. A Join that raced in keeps it alive.
func (p *Presence) reap(room string, r *roster) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) == 0 && p.rooms[room] == r {
		r.dead = true
		delete(p.rooms, room)
	}
}

func indexOf(members []domain.Member, key string) int {
	return slices.IndexFunc(members, func(m domain.Member) bool { return m.Key == key })
}
