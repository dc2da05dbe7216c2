package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus is the delivery state of a message
type MessageStatus string

const (
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// TranslationStatus is the lifecycle state of a message's translation.
// A nil pointer on the message means no translation was needed or attempted.
type TranslationStatus string

const (
	TranslationStatusPending     TranslationStatus = "pending"
	TranslationStatusTranslating TranslationStatus = "translating"
	TranslationStatusTranslated  TranslationStatus = "translated"
	TranslationStatusFailed      TranslationStatus = "failed"
)

// Message represents a chat message entity
// Maps to Postgres messages table. Translation fields are only ever written
// after the message has been persisted with status "sent".
type Message struct {
	MessageID         uuid.UUID          `json:"message_id" db:"message_id"`
	Content           string             `json:"content" db:"content"`
	OriginalLanguage  Language           `json:"original_language" db:"original_language"`
	TranslatedContent *string            `json:"translated_content,omitempty" db:"translated_content"`
	TargetLanguage    *Language          `json:"target_language,omitempty" db:"target_language"`
	Tone              Tone               `json:"tone" db:"tone"`
	Status            MessageStatus      `json:"status" db:"status"`
	TranslationStatus *TranslationStatus `json:"translation_status,omitempty" db:"translation_status"`
	SenderID          uuid.UUID          `json:"sender_id" db:"sender_id"`
	ReceiverID        uuid.UUID          `json:"receiver_id" db:"receiver_id"`
	ConversationID    uuid.UUID          `json:"conversation_id" db:"conversation_id"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" db:"updated_at"`
	ReadAt            *time.Time         `json:"read_at,omitempty" db:"read_at"`
}

// MessageCreate represents data needed to send a message
type MessageCreate struct {
	ReceiverID       uuid.UUID `json:"receiver_id" binding:"required"`
	Content          string    `json:"content" binding:"required"`
	Tone             Tone      `json:"tone"`
	OriginalLanguage *Language `json:"original_language,omitempty"` // Defaults to sender preference
}

// MessageResponse represents the message returned to clients
type MessageResponse struct {
	MessageID         uuid.UUID          `json:"message_id"`
	Content           string             `json:"content"`
	OriginalLanguage  Language           `json:"original_language"`
	TranslatedContent *string            `json:"translated_content,omitempty"`
	TargetLanguage    *Language          `json:"target_language,omitempty"`
	Tone              Tone               `json:"tone"`
	Status            MessageStatus      `json:"status"`
	TranslationStatus *TranslationStatus `json:"translation_status,omitempty"`
	SenderID          uuid.UUID          `json:"sender_id"`
	ReceiverID        uuid.UUID          `json:"receiver_id"`
	ConversationID    uuid.UUID          `json:"conversation_id"`
	CreatedAt         time.Time          `json:"created_at"`
	ReadAt            *time.Time         `json:"read_at,omitempty"`
}

// ToResponse converts Message to MessageResponse
func (m *Message) ToResponse() *MessageResponse {
	return &MessageResponse{
		MessageID:         m.MessageID,
		Content:           m.Content,
		OriginalLanguage:  m.OriginalLanguage,
		TranslatedContent: m.TranslatedContent,
		TargetLanguage:    m.TargetLanguage,
		Tone:              m.Tone,
		Status:            m.Status,
		TranslationStatus: m.TranslationStatus,
		SenderID:          m.SenderID,
		ReceiverID:        m.ReceiverID,
		ConversationID:    m.ConversationID,
		CreatedAt:         m.CreatedAt,
		ReadAt:            m.ReadAt,
	}
}
