package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linguachat-backend/internal/domain"
)

func TestUserStatusEventShape(t *testing.T) {
	userID := uuid.New()
	payload := NewUserStatusEvent(userID, true)
	require.NotNil(t, payload)

	var event struct {
		Type string         `json:"type"`
		Data UserStatusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, EventTypeUserStatus, event.Type)
	assert.Equal(t, userID, event.Data.UserID)
	assert.True(t, event.Data.IsOnline)
	assert.False(t, event.Data.Timestamp.IsZero())
}

func TestMessageEventCarriesTranslationFields(t *testing.T) {
	translated := "Bonjour"
	target := domain.LanguageFR
	status := domain.TranslationStatusTranslated
	message := &domain.MessageResponse{
		MessageID:         uuid.New(),
		Content:           "Hello",
		OriginalLanguage:  domain.LanguageEN,
		TranslatedContent: &translated,
		TargetLanguage:    &target,
		Tone:              domain.ToneCasual,
		Status:            domain.MessageStatusSent,
		TranslationStatus: &status,
		SenderID:          uuid.New(),
		ReceiverID:        uuid.New(),
		ConversationID:    uuid.New(),
		CreatedAt:         time.Now().UTC(),
	}

	payload := NewMessageUpdatedEvent(message)
	var event struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, EventTypeMessageUpdated, event.Type)
	assert.Equal(t, "Bonjour", event.Data["translated_content"])
	assert.Equal(t, "fr", event.Data["target_language"])
	assert.Equal(t, "translated", event.Data["translation_status"])
}

func TestClientFrameParsing(t *testing.T) {
	conversationID := uuid.New()
	raw := []byte(`{"type":"typing","conversation_id":"` + conversationID.String() + `","is_typing":true}`)

	var frame ClientFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FrameTypeTyping, frame.Type)
	assert.Equal(t, conversationID, frame.ConversationID)
	assert.True(t, frame.IsTyping)
}

func TestPongAndErrorEvents(t *testing.T) {
	assert.JSONEq(t, `{"type":"pong"}`, string(NewPongEvent()))
	assert.JSONEq(t, `{"type":"error","message":"bad frame"}`, string(NewErrorEvent("bad frame")))
}
