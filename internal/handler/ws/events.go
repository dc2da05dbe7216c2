package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"linguachat-backend/internal/domain"
)

// Server-to-client frame types
const (
	EventTypeMessage        = "message"
	EventTypeMessageUpdated = "message_updated"
	EventTypeMessageDeleted = "message_deleted"
	EventTypeUserStatus     = "user_status"
	EventTypeTyping         = "typing"
	EventTypeRead           = "read"
	EventTypePong           = "pong"
	EventTypeError          = "error"
)

// Client-to-server frame types
const (
	FrameTypeTyping = "typing"
	FrameTypeRead   = "read"
	FrameTypePing   = "ping"
)

// Event is the server-to-client frame envelope
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorEvent is sent for unrecognized or malformed client frames
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientFrame is the client-to-server frame shape. Fields are populated
// depending on Type.
type ClientFrame struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
	MessageID      uuid.UUID `json:"message_id,omitempty"`
	IsTyping       bool      `json:"is_typing,omitempty"`
}

// UserStatusData carries a presence transition
type UserStatusData struct {
	UserID    uuid.UUID `json:"user_id"`
	IsOnline  bool      `json:"is_online"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingData carries a typing indicator
type TypingData struct {
	UserID         uuid.UUID `json:"user_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	IsTyping       bool      `json:"is_typing"`
	Timestamp      time.Time `json:"timestamp"`
}

// ReadData carries a read receipt
type ReadData struct {
	UserID         uuid.UUID `json:"user_id"`
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	ReadAt         time.Time `json:"read_at"`
}

// MessageDeletedData identifies a removed message
type MessageDeletedData struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

// marshalEvent encodes an event envelope. Encoding only fails for
// non-serializable payloads, which would be a programming error, so the
// error is swallowed into a nil slice callers skip.
func marshalEvent(eventType string, data interface{}) []byte {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return nil
	}
	return payload
}

// NewMessageEvent builds a "message" frame
func NewMessageEvent(message *domain.MessageResponse) []byte {
	return marshalEvent(EventTypeMessage, message)
}

// NewMessageUpdatedEvent builds a "message_updated" frame, re-broadcast
// after translation completes
func NewMessageUpdatedEvent(message *domain.MessageResponse) []byte {
	return marshalEvent(EventTypeMessageUpdated, message)
}

// NewMessageDeletedEvent builds a "message_deleted" frame
func NewMessageDeletedEvent(messageID, conversationID uuid.UUID) []byte {
	return marshalEvent(EventTypeMessageDeleted, MessageDeletedData{
		MessageID:      messageID,
		ConversationID: conversationID,
	})
}

// NewUserStatusEvent builds a "user_status" frame
func NewUserStatusEvent(userID uuid.UUID, isOnline bool) []byte {
	return marshalEvent(EventTypeUserStatus, UserStatusData{
		UserID:    userID,
		IsOnline:  isOnline,
		Timestamp: time.Now().UTC(),
	})
}

// NewTypingEvent builds a "typing" frame
func NewTypingEvent(userID, conversationID uuid.UUID, isTyping bool) []byte {
	return marshalEvent(EventTypeTyping, TypingData{
		UserID:         userID,
		ConversationID: conversationID,
		IsTyping:       isTyping,
		Timestamp:      time.Now().UTC(),
	})
}

// NewReadEvent builds a "read" receipt frame
func NewReadEvent(userID, messageID, conversationID uuid.UUID, readAt time.Time) []byte {
	return marshalEvent(EventTypeRead, ReadData{
		UserID:         userID,
		MessageID:      messageID,
		ConversationID: conversationID,
		ReadAt:         readAt,
	})
}

// NewPongEvent builds a heartbeat reply frame
func NewPongEvent() []byte {
	return marshalEvent(EventTypePong, nil)
}

// NewErrorEvent builds an "error" frame
func NewErrorEvent(message string) []byte {
	payload, err := json.Marshal(ErrorEvent{Type: EventTypeError, Message: message})
	if err != nil {
		return nil
	}
	return payload
}
