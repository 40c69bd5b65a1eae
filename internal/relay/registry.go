package relay

import "sync"

// Connection is one live client session: an opaque transport ID bound to an
// authenticated identity and at most one room.
type Connection struct {
	ID       string
	Identity string
	Room     string // "" until the first join
}

// Registry maps connection IDs to their identity and current room. All
// compound operations are atomic under a single mutex; the registry never
// performs I/O.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

func (r *Registry) Register(connID, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; ok {
		return ErrDuplicateConnection
	}
	r.conns[connID] = &Connection{ID: connID, Identity: identity}
	return nil
}

// SetRoom moves the connection into roomID and returns the room it was in
// before ("" if none) so the caller can evict the old membership.
func (r *Registry) SetRoom(connID, roomID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return "", ErrNotFound
	}
	prev := c.Room
	c.Room = roomID
	return prev, nil
}

func (r *Registry) Lookup(connID string) (Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return Connection{}, ErrNotFound
	}
	return *c, nil
}

// Remove deletes the connection and reports its last known state. Removing an
// absent connection is a no-op.
func (r *Registry) Remove(connID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, connID)
	return *c, true
}
