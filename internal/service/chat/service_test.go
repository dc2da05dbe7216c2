package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/repository/postgres"
	apperrors "linguachat-backend/pkg/errors"
)

// --- fakes ---

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	calls int
}

func (f *fakeUsers) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if user, ok := f.users[userID]; ok {
		return user, nil
	}
	return nil, postgres.ErrNotFound
}

type translationUpdate struct {
	messageID uuid.UUID
	content   string
	target    domain.Language
	status    domain.TranslationStatus
}

type fakeMessages struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.Message
	created  []*domain.Message
	updates  []translationUpdate
	statuses []domain.TranslationStatus
	marked   []uuid.UUID
	deleted  []uuid.UUID
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{byID: make(map[uuid.UUID]*domain.Message)}
}

func (f *fakeMessages) Create(ctx context.Context, message *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, message)
	f.byID[message.MessageID] = message
	return nil
}

func (f *fakeMessages) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.byID[messageID]; ok {
		return m, nil
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeMessages) UpdateTranslation(ctx context.Context, messageID uuid.UUID, translatedContent string, targetLanguage domain.Language, status domain.TranslationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, translationUpdate{messageID, translatedContent, targetLanguage, status})
	return nil
}

func (f *fakeMessages) SetTranslationStatus(ctx context.Context, messageID uuid.UUID, status domain.TranslationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeMessages) MarkRead(ctx context.Context, messageID uuid.UUID, readAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, messageID)
	if m, ok := f.byID[messageID]; ok {
		m.ReadAt = &readAt
		m.Status = domain.MessageStatusRead
	}
	return nil
}

func (f *fakeMessages) Delete(ctx context.Context, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	delete(f.byID, messageID)
	return nil
}

func (f *fakeMessages) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, m := range f.created {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) GetLast(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	return nil, postgres.ErrNotFound
}

func (f *fakeMessages) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type fakeConversations struct {
	mu           sync.Mutex
	direct       *domain.Conversation
	createOnce   bool
	participants map[uuid.UUID]bool
	increments   int
	decrements   int
	touches      int
}

func newFakeConversations() *fakeConversations {
	now := time.Now().UTC()
	return &fakeConversations{
		direct: &domain.Conversation{
			ConversationID: uuid.New(),
			IsGroup:        false,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		participants: make(map[uuid.UUID]bool),
	}
}

func (f *fakeConversations) Create(ctx context.Context, conversation *domain.Conversation, participantIDs []uuid.UUID) error {
	return nil
}

func (f *fakeConversations) FindOrCreateDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := f.createOnce
	f.createOnce = false
	return f.direct, created, nil
}

func (f *fakeConversations) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	return f.direct, nil
}

func (f *fakeConversations) GetUserConversations(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	return []*domain.Conversation{f.direct}, nil
}

func (f *fakeConversations) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]*domain.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Participant
	for userID := range f.participants {
		out = append(out, &domain.Participant{ConversationID: conversationID, UserID: userID})
	}
	return out, nil
}

func (f *fakeConversations) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants[userID], nil
}

func (f *fakeConversations) IncrementUnread(ctx context.Context, conversationID, senderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	return nil
}

func (f *fakeConversations) DecrementUnread(ctx context.Context, conversationID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrements++
	return nil
}

func (f *fakeConversations) GetUnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeConversations) Touch(ctx context.Context, conversationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	return nil
}

type broadcastRecord struct {
	kind           string
	conversationID uuid.UUID
	message        *domain.MessageResponse
	messageID      uuid.UUID
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	events  []broadcastRecord
	joined  []uuid.UUID
}

func (f *fakeBroadcaster) JoinConversation(conversationID, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, userID)
}

func (f *fakeBroadcaster) BroadcastMessage(conversationID uuid.UUID, message *domain.MessageResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastRecord{kind: "message", conversationID: conversationID, message: message})
}

func (f *fakeBroadcaster) BroadcastMessageUpdated(conversationID uuid.UUID, message *domain.MessageResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastRecord{kind: "message_updated", conversationID: conversationID, message: message})
}

func (f *fakeBroadcaster) BroadcastMessageDeleted(conversationID, messageID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastRecord{kind: "message_deleted", conversationID: conversationID, messageID: messageID})
}

func (f *fakeBroadcaster) BroadcastRead(conversationID, readerID, messageID uuid.UUID, readAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastRecord{kind: "read", conversationID: conversationID, messageID: messageID})
}

func (f *fakeBroadcaster) byKind(kind string) []broadcastRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcastRecord
	for _, e := range f.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeTranslator struct {
	result string
	status domain.TranslationStatus
}

func (f *fakeTranslator) Translate(ctx context.Context, text string, source, target domain.Language, tone domain.Tone) (string, domain.TranslationStatus) {
	if f.status == domain.TranslationStatusFailed {
		return text, domain.TranslationStatusFailed
	}
	return f.result, domain.TranslationStatusTranslated
}

// --- fixtures ---

type pipelineFixture struct {
	svc           *Service
	users         *fakeUsers
	messages      *fakeMessages
	conversations *fakeConversations
	broadcaster   *fakeBroadcaster
	translator    *fakeTranslator
	sender        *domain.User
	receiver      *domain.User
}

func newPipelineFixture(senderLang, receiverLang domain.Language) *pipelineFixture {
	sender := &domain.User{
		UserID:            uuid.New(),
		Email:             "alice@example.com",
		FullName:          "Alice",
		PreferredLanguage: senderLang,
		PreferredTone:     domain.ToneCasual,
		IsActive:          true,
	}
	receiver := &domain.User{
		UserID:            uuid.New(),
		Email:             "bob@example.com",
		FullName:          "Bob",
		PreferredLanguage: receiverLang,
		PreferredTone:     domain.ToneStandard,
		IsActive:          true,
	}

	users := &fakeUsers{users: map[uuid.UUID]*domain.User{
		sender.UserID:   sender,
		receiver.UserID: receiver,
	}}
	messages := newFakeMessages()
	conversations := newFakeConversations()
	conversations.participants[sender.UserID] = true
	conversations.participants[receiver.UserID] = true
	broadcaster := &fakeBroadcaster{}
	translator := &fakeTranslator{result: "Bonjour", status: domain.TranslationStatusTranslated}

	return &pipelineFixture{
		svc:           NewService(users, messages, conversations, broadcaster, translator),
		users:         users,
		messages:      messages,
		conversations: conversations,
		broadcaster:   broadcaster,
		translator:    translator,
		sender:        sender,
		receiver:      receiver,
	}
}

// --- tests ---

func TestSendMessageSameLanguage(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	response, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "  Hello Bob  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello Bob", response.Content, "content must be trimmed")
	assert.Equal(t, domain.MessageStatusSent, response.Status)
	assert.Equal(t, domain.LanguageEN, response.OriginalLanguage)
	assert.Equal(t, domain.ToneCasual, response.Tone, "tone defaults to sender preference")
	assert.Nil(t, response.TranslationStatus, "same-language messages are never translated")
	assert.Nil(t, response.TargetLanguage)

	assert.Len(t, f.messages.created, 1)
	assert.Equal(t, 1, f.conversations.increments)
	assert.Equal(t, 1, f.conversations.touches)

	broadcasts := f.broadcaster.byKind("message")
	require.Len(t, broadcasts, 1)
	assert.Equal(t, response.MessageID, broadcasts[0].message.MessageID)

	// Nothing to translate, so no follow-up update may ever arrive
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, f.messages.updateCount())
}

func TestSendMessageCrossLanguageTranslatesAsync(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageFR)

	response, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "Hello",
	})
	require.NoError(t, err)

	// The message is broadcast before the translation completes
	require.NotNil(t, response.TranslationStatus)
	assert.Equal(t, domain.TranslationStatusPending, *response.TranslationStatus)
	require.NotNil(t, response.TargetLanguage)
	assert.Equal(t, domain.LanguageFR, *response.TargetLanguage)
	assert.Nil(t, response.TranslatedContent)
	require.Len(t, f.broadcaster.byKind("message"), 1)

	// The translation follow-up lands asynchronously
	assert.Eventually(t, func() bool { return f.messages.updateCount() == 1 }, time.Second, 5*time.Millisecond)

	f.messages.mu.Lock()
	update := f.messages.updates[0]
	f.messages.mu.Unlock()
	assert.Equal(t, response.MessageID, update.messageID)
	assert.Equal(t, "Bonjour", update.content)
	assert.Equal(t, domain.LanguageFR, update.target)
	assert.Equal(t, domain.TranslationStatusTranslated, update.status)

	assert.Eventually(t, func() bool { return len(f.broadcaster.byKind("message_updated")) == 1 }, time.Second, 5*time.Millisecond)
	updated := f.broadcaster.byKind("message_updated")[0].message
	require.NotNil(t, updated.TranslatedContent)
	assert.Equal(t, "Bonjour", *updated.TranslatedContent)
}

func TestSendMessageTranslationFailureRecordsStatusOnly(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageES)
	f.translator.status = domain.TranslationStatusFailed

	response, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "Hello",
	})
	require.NoError(t, err, "translation failure must never fail the send")
	assert.Nil(t, response.TranslatedContent)

	// The follow-up ends with the failed status transition
	assert.Eventually(t, func() bool {
		f.messages.mu.Lock()
		defer f.messages.mu.Unlock()
		return len(f.messages.statuses) == 2 &&
			f.messages.statuses[0] == domain.TranslationStatusTranslating &&
			f.messages.statuses[1] == domain.TranslationStatusFailed
	}, time.Second, 5*time.Millisecond)

	// Clients keep rendering the original text: no translated content is
	// persisted and no message_updated frame is broadcast
	assert.Zero(t, f.messages.updateCount(), "failed translations must not write translated_content")
	assert.Empty(t, f.broadcaster.byKind("message_updated"))
}

func TestSendMessageValidation(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	_, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "   ",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)

	_, err = f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.sender.UserID,
		Content:    "hi",
	})
	require.Error(t, err, "self-send must be rejected")

	_, err = f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "hi",
		Tone:       domain.Tone("sarcastic"),
	})
	require.Error(t, err, "unknown tone must be rejected")

	assert.Empty(t, f.broadcaster.events, "no broadcast on rejected sends")
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	_, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: uuid.New(),
		Content:    "hi",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, apperrors.GetAppError(err).Code)
}

func TestSendMessageFirstContactJoinsRoom(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)
	f.conversations.createOnce = true

	_, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "hi",
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uuid.UUID{f.sender.UserID, f.receiver.UserID}, f.broadcaster.joined)
}

func TestMarkRead(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	response, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "hi",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(context.Background(), f.receiver.UserID, response.MessageID))
	assert.Len(t, f.messages.marked, 1)
	assert.Equal(t, 1, f.conversations.decrements)
	assert.Len(t, f.broadcaster.byKind("read"), 1)

	// Second receipt for the same message is a no-op
	require.NoError(t, f.svc.MarkRead(context.Background(), f.receiver.UserID, response.MessageID))
	assert.Len(t, f.messages.marked, 1, "unread counter must decrement at most once per message")
	assert.Equal(t, 1, f.conversations.decrements)
}

func TestMarkReadOnlyReceiver(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	response, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "hi",
	})
	require.NoError(t, err)

	err = f.svc.MarkRead(context.Background(), f.sender.UserID, response.MessageID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)

	err = f.svc.MarkRead(context.Background(), f.receiver.UserID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMessageNotFound, apperrors.GetAppError(err).Code)
}

func TestDeleteMessage(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	response, err := f.svc.SendMessage(context.Background(), f.sender.UserID, &domain.MessageCreate{
		ReceiverID: f.receiver.UserID,
		Content:    "hi",
	})
	require.NoError(t, err)

	// Only the sender may delete
	err = f.svc.DeleteMessage(context.Background(), f.receiver.UserID, response.MessageID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
	assert.Empty(t, f.messages.deleted)

	require.NoError(t, f.svc.DeleteMessage(context.Background(), f.sender.UserID, response.MessageID))
	assert.Equal(t, []uuid.UUID{response.MessageID}, f.messages.deleted)

	deletions := f.broadcaster.byKind("message_deleted")
	require.Len(t, deletions, 1)
	assert.Equal(t, response.MessageID, deletions[0].messageID)
}

func TestListMessagesRequiresParticipation(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	_, err := f.svc.ListMessages(context.Background(), uuid.New(), f.conversations.direct.ConversationID, 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)

	messages, err := f.svc.ListMessages(context.Background(), f.sender.UserID, f.conversations.direct.ConversationID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestCreateConversationValidation(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	_, err := f.svc.CreateConversation(context.Background(), f.sender.UserID, &domain.ConversationCreate{
		IsGroup:        true,
		ParticipantIDs: []uuid.UUID{f.receiver.UserID},
	})
	require.Error(t, err, "group without a name must be rejected")

	_, err = f.svc.CreateConversation(context.Background(), f.sender.UserID, &domain.ConversationCreate{
		IsGroup:        false,
		ParticipantIDs: []uuid.UUID{f.receiver.UserID, uuid.New()},
	})
	require.Error(t, err, "direct conversation with three users must be rejected")
}

func TestCreateDirectConversationReusesExisting(t *testing.T) {
	f := newPipelineFixture(domain.LanguageEN, domain.LanguageEN)

	response, err := f.svc.CreateConversation(context.Background(), f.sender.UserID, &domain.ConversationCreate{
		IsGroup:        false,
		ParticipantIDs: []uuid.UUID{f.receiver.UserID},
	})
	require.NoError(t, err)
	assert.Equal(t, f.conversations.direct.ConversationID, response.ConversationID)
	assert.Len(t, response.Participants, 2)
}
