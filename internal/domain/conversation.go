package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation represents conversation metadata
// Maps to Postgres conversations table
type Conversation struct {
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	IsGroup        bool      `json:"is_group" db:"is_group"`
	Name           *string   `json:"name,omitempty" db:"name"` // Group chats only
	DirectKey      *string   `json:"-" db:"direct_key"`        // Unique per user pair, nil for groups
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DirectConversationKey builds the canonical key for a direct conversation
// between two users. The key is order-independent so at most one direct
// conversation can exist per unordered pair.
func DirectConversationKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%s:%s", lo, hi)
}

// Participant represents a user's membership in a conversation
// Maps to Postgres conversation_participants table
type Participant struct {
	ConversationID uuid.UUID  `json:"conversation_id" db:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	UnreadCount    int        `json:"unread_count" db:"unread_count"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty" db:"last_read_at"`
	JoinedAt       time.Time  `json:"joined_at" db:"joined_at"`
}

// ConversationCreate represents data to create a new conversation
type ConversationCreate struct {
	IsGroup        bool        `json:"is_group"`
	Name           *string     `json:"name,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids" binding:"required,min=1"`
}

// ConversationResponse is the conversation data returned to clients,
// enriched with the caller's unread watermark and the newest message
type ConversationResponse struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	IsGroup        bool             `json:"is_group"`
	Name           *string          `json:"name,omitempty"`
	Participants   []UserResponse   `json:"participants"`
	LastMessage    *MessageResponse `json:"last_message,omitempty"`
	UnreadCount    int              `json:"unread_count"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
