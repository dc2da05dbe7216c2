package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Rooms maps conversations to the user IDs currently subscribed for
// real-time delivery. Membership here is about live interest, not database
// participation: users are joined to their conversations when they connect
// and removed when their last connection goes away.
type Rooms struct {
	mu sync.RWMutex

	// conversation_id -> set of user_ids
	members map[uuid.UUID]map[uuid.UUID]struct{}

	// user_id -> set of conversation_ids, for cheap cleanup on disconnect
	joined map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewRooms creates an empty room table
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		joined:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Join subscribes a user to a conversation. Idempotent.
func (r *Rooms) Join(conversationID, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[conversationID] == nil {
		r.members[conversationID] = make(map[uuid.UUID]struct{})
	}
	r.members[conversationID][userID] = struct{}{}

	if r.joined[userID] == nil {
		r.joined[userID] = make(map[uuid.UUID]struct{})
	}
	r.joined[userID][conversationID] = struct{}{}
}

// Leave unsubscribes a user from a conversation. Idempotent.
func (r *Rooms) Leave(conversationID, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conversationID, userID)
}

func (r *Rooms) leaveLocked(conversationID, userID uuid.UUID) {
	if set := r.members[conversationID]; set != nil {
		delete(set, userID)
		if len(set) == 0 {
			delete(r.members, conversationID)
		}
	}
	if set := r.joined[userID]; set != nil {
		delete(set, conversationID)
		if len(set) == 0 {
			delete(r.joined, userID)
		}
	}
}

// LeaveAll removes the user from every conversation they were subscribed to
func (r *Rooms) LeaveAll(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conversationID := range r.joined[userID] {
		r.leaveLocked(conversationID, userID)
	}
}

// Members returns the user IDs subscribed to a conversation
func (r *Rooms) Members(conversationID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(r.members[conversationID]))
	for userID := range r.members[conversationID] {
		users = append(users, userID)
	}
	return users
}

// IsMember reports whether the user is subscribed to the conversation
func (r *Rooms) IsMember(conversationID, userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[conversationID][userID]
	return ok
}
