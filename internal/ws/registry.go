package ws

import "sync"

// Conn is one live realtime session.
type Conn interface {
	ID() string
	// Send queues payload for delivery. It must not block.
	Send(payload []byte) error
	Close() error
}

// Registry tracks which live connections belong to which user. The forward
// (user -> connections) and reverse (connection -> user) maps are only
// changed together under mu.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int]map[string]Conn
	owners map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int]map[string]Conn),
		owners: make(map[string]int),
	}
}

// Register binds conn to userID and reports whether a new binding was made.
// Registering the same pair again is a no-op. A connection id bound to
// another user is moved to userID.
func (r *Registry) Register(userID int, conn Conn) bool {
	id := conn.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[id]; ok {
		if owner == userID {
			return false
		}
		r.detach(owner, id)
	}

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]Conn)
		r.byUser[userID] = conns
	}
	conns[id] = conn
	r.owners[id] = userID
	return true
}

// Unregister removes a connection and returns its former owner. Unknown ids
// are ignored.
func (r *Registry) Unregister(connID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[connID]
	if !ok {
		return 0, false
	}
	r.detach(owner, connID)
	return owner, true
}

// detach must be called with mu held.
func (r *Registry) detach(userID int, connID string) {
	delete(r.owners, connID)
	if conns, ok := r.byUser[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsFor returns a snapshot of the user's live connections. It is
// empty when the user is offline.
func (r *Registry) ConnectionsFor(userID int) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]Conn, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn)
	}
	return out
}

// Owner returns the user a connection belongs to.
func (r *Registry) Owner(connID string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[connID]
	return owner, ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// CloseAll closes every live connection and returns how many were closed.
// Each connection's teardown unregisters it.
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.owners))
	for _, byID := range r.byUser {
		for _, conn := range byID {
			conns = append(conns, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return len(conns)
}
