package chat

import (
	"slices"
	"strings"
	"sync"
)

// Conn is a live connection handle as seen by the registry and the router.
type Conn interface {
	ID() string
	UserID() string
	// Send queues data without blocking. It fails when the queue is full or the
	// connection is closed.
	Send(data []byte) error
	// Close asks the connection to shut down. It is safe to call more than once.
	Close(reason string)
}

// Registry maps online users to their live connections and connections back to
// their user. Both indices change together under one lock, so a connection id is
// never visible in one and missing from the other.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]Conn
	byConn map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]Conn),
		byConn: make(map[string]string),
	}
}

// Register adds conn under userID. first is true when userID had no connection
// before this call (offline to online). Registering a known connection id again is
// a no-op.
func (r *Registry) Register(userID string, conn Conn) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	if _, ok := r.byConn[connID]; ok {
		return false
	}

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]Conn)
		r.byUser[userID] = conns
	}

	first = len(conns) == 0
	conns[connID] = conn
	r.byConn[connID] = userID

	return first
}

// Unregister removes a connection. last is true when it was the user's final
// connection (online to offline). ok is false for unknown ids.
func (r *Registry) Unregister(connID string) (userID string, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.byConn[connID]
	if !ok {
		return "", false, false
	}
	delete(r.byConn, connID)

	conns := r.byUser[userID]
	delete(conns, connID)

	if len(conns) == 0 {
		delete(r.byUser, userID)
		return userID, true, true
	}

	return userID, false, true
}

// IsOnline reports whether userID has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

// ConnectionsOf returns a snapshot of the user's connections ordered by id.
func (r *Registry) ConnectionsOf(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedConns(r.byUser[userID])
}

// All returns a snapshot of every registered connection ordered by id.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Conn, 0, len(r.byConn))
	for _, conns := range r.byUser {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	sortByID(all)

	return all
}

// OnlineCount returns the number of online users.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byConn)
}

func sortedConns(conns map[string]Conn) []Conn {
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	sortByID(out)

	return out
}

func sortByID(conns []Conn) {
	slices.SortFunc(conns, func(a, b Conn) int {
		return strings.Compare(a.ID(), b.ID())
	})
}
