package relay

import (
	"sort"
	"sync"
)

// Directory keeps the member set per room. Rooms are created lazily on the
// first Join and reclaimed when the last member leaves; a later Join
// transparently recreates them.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[string]struct{})}
}

// Join is idempotent.
func (d *Directory) Join(roomID, connID string) {
	d.mu.Lock()
	members, ok := d.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[roomID] = members
	}
	members[connID] = struct{}{}
	d.mu.Unlock()
}

// Leave is idempotent. The room is dropped once it has no members.
func (d *Directory) Leave(roomID, connID string) {
	d.mu.Lock()
	if members, ok := d.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(d.rooms, roomID)
		}
	}
	d.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the room's membership, sorted for
// a stable iteration order. Callers iterate the copy during fan-out so no
// directory lock is held while doing I/O.
func (d *Directory) Snapshot(roomID string) []string {
	d.mu.RLock()
	members := d.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	d.mu.RUnlock()

	sort.Strings(out)
	return out
}
