package ws

import (
	"sync"

	"github.com/google/uuid"

	"linguachat-backend/pkg/metrics"
)

// Registry tracks every live WebSocket connection in this process, grouped
// by owning user. It is the authoritative in-memory presence source: a user
// is online exactly while they hold at least one registered connection.
type Registry struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]map[*Client]struct{}
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Add registers a connection. Returns true when this is the user's first
// live connection, i.e. the user just transitioned to online.
func (r *Registry) Add(c *Client) (cameOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, exists := r.connections[c.userID]
	if !exists {
		set = make(map[*Client]struct{})
		r.connections[c.userID] = set
	}
	set[c] = struct{}{}

	metrics.WebSocketConnectionsActive.Inc()
	return !exists
}

// Remove deregisters a connection. Safe to call more than once for the
// same client. Returns true when this was the user's last connection,
// i.e. the user just transitioned to offline.
func (r *Registry) Remove(c *Client) (wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, exists := r.connections[c.userID]
	if !exists {
		return false
	}
	if _, registered := set[c]; !registered {
		return false
	}

	delete(set, c)
	metrics.WebSocketConnectionsActive.Dec()

	if len(set) == 0 {
		delete(r.connections, c.userID)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live connection
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[userID]) > 0
}

// OnlineUsers returns the IDs of every user with a live connection
func (r *Registry) OnlineUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(r.connections))
	for userID := range r.connections {
		users = append(users, userID)
	}
	return users
}

// ConnectionCount returns the number of live connections for a user
func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[userID])
}

// SendTo delivers a frame to every connection of a user. Connections that
// cannot accept the frame (full buffer or already closing) are dropped from
// the registry and closed, so one stuck client never blocks delivery to
// the rest. Returns the number of connections the frame was queued on.
func (r *Registry) SendTo(userID uuid.UUID, payload []byte) int {
	if payload == nil {
		return 0
	}

	r.mu.RLock()
	clients := make([]*Client, 0, len(r.connections[userID]))
	for c := range r.connections[userID] {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		metrics.MessagesDroppedTotal.WithLabelValues("buffer_full").Inc()
		r.Remove(c)
		c.close()
	}
	return delivered
}

// Broadcast delivers a frame to every connection of every online user
func (r *Registry) Broadcast(payload []byte) {
	if payload == nil {
		return
	}
	for _, userID := range r.OnlineUsers() {
		r.SendTo(userID, payload)
	}
}
