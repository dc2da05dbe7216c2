package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linguachat-backend/internal/domain"
	"linguachat-backend/internal/repository/postgres"
	"linguachat-backend/pkg/cache"
	apperrors "linguachat-backend/pkg/errors"
	"linguachat-backend/pkg/logger"
	"linguachat-backend/pkg/metrics"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	maxContentSize  = 4096

	// translateTimeout bounds the async translation follow-up, independent
	// of the request context that spawned it
	translateTimeout = 30 * time.Second
)

// UserStore provides the user rows the pipeline needs for language and
// tone resolution
type UserStore interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// MessageStore persists messages
type MessageStore interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error)
	UpdateTranslation(ctx context.Context, messageID uuid.UUID, translatedContent string, targetLanguage domain.Language, status domain.TranslationStatus) error
	SetTranslationStatus(ctx context.Context, messageID uuid.UUID, status domain.TranslationStatus) error
	MarkRead(ctx context.Context, messageID uuid.UUID, readAt time.Time) error
	Delete(ctx context.Context, messageID uuid.UUID) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	GetLast(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
}

// ConversationStore persists conversations and participant state
type ConversationStore interface {
	Create(ctx context.Context, conversation *domain.Conversation, participantIDs []uuid.UUID) error
	FindOrCreateDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error)
	GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
	GetUserConversations(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]*domain.Participant, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	IncrementUnread(ctx context.Context, conversationID, senderID uuid.UUID) error
	DecrementUnread(ctx context.Context, conversationID, userID uuid.UUID) error
	GetUnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error)
	Touch(ctx context.Context, conversationID uuid.UUID) error
}

// Broadcaster fans events out to connected clients. Implemented by the
// WebSocket hub; a no-op implementation keeps the pipeline testable.
type Broadcaster interface {
	JoinConversation(conversationID, userID uuid.UUID)
	BroadcastMessage(conversationID uuid.UUID, message *domain.MessageResponse)
	BroadcastMessageUpdated(conversationID uuid.UUID, message *domain.MessageResponse)
	BroadcastMessageDeleted(conversationID, messageID uuid.UUID)
	BroadcastRead(conversationID, readerID, messageID uuid.UUID, readAt time.Time)
}

// Translator converts message text between languages. The status result
// carries the outcome; translation failures never surface as errors here.
type Translator interface {
	Translate(ctx context.Context, text string, source, target domain.Language, tone domain.Tone) (string, domain.TranslationStatus)
}

// Service is the message pipeline: it validates, persists, fans out and
// translates messages, and owns conversation bookkeeping.
type Service struct {
	users         UserStore
	messages      MessageStore
	conversations ConversationStore
	broadcaster   Broadcaster
	translator    Translator

	// Caches user rows so hot conversations do not re-read sender and
	// receiver preferences on every message
	userCache *cache.MemoryCache

	// Per-conversation mutexes serialize persist+broadcast so fanout
	// order matches persistence order within a conversation
	locks sync.Map
}

// NewService creates a message pipeline
func NewService(
	users UserStore,
	messages MessageStore,
	conversations ConversationStore,
	broadcaster Broadcaster,
	translator Translator,
) *Service {
	return &Service{
		users:         users,
		messages:      messages,
		conversations: conversations,
		broadcaster:   broadcaster,
		translator:    translator,
		userCache:     cache.NewMemoryCache(30*time.Second, 10000),
	}
}

// lockConversation acquires the per-conversation mutex
func (s *Service) lockConversation(conversationID uuid.UUID) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu
}

// getUser loads a user through the preference cache
func (s *Service) getUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if cached, ok := s.userCache.Get(userID.String()); ok {
		return cached.(*domain.User), nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, apperrors.UserNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	s.userCache.Set(userID.String(), user, 0)
	return user, nil
}

// InvalidateUserCache drops a cached user row, called after settings change
func (s *Service) InvalidateUserCache(userID uuid.UUID) {
	s.userCache.Delete(userID.String())
}

// SendMessage runs the full pipeline for one outgoing direct message:
//
//  1. validate content, tone and language
//  2. find or create the direct conversation
//  3. persist the message with status "sent"
//  4. bump unread counters and conversation recency
//  5. broadcast immediately, then translate asynchronously if the
//     receiver reads a different language
//
// Steps 3-5 hold the conversation lock so concurrent sends into the same
// conversation broadcast in persistence order.
func (s *Service) SendMessage(ctx context.Context, senderID uuid.UUID, input *domain.MessageCreate) (*domain.MessageResponse, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.ValidationError("message content cannot be empty")
	}
	if len(content) > maxContentSize {
		return nil, apperrors.ValidationError("message content too long")
	}
	if senderID == input.ReceiverID {
		return nil, apperrors.ValidationError("cannot send a message to yourself")
	}

	sender, err := s.getUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.getUser(ctx, input.ReceiverID)
	if err != nil {
		return nil, err
	}

	tone := sender.PreferredTone
	if input.Tone != "" {
		if !input.Tone.IsValid() {
			return nil, apperrors.ValidationError("unsupported tone: " + string(input.Tone))
		}
		tone = input.Tone
	}

	originalLanguage := sender.PreferredLanguage
	if input.OriginalLanguage != nil {
		if !input.OriginalLanguage.IsValid() {
			return nil, apperrors.ValidationError("unsupported language: " + string(*input.OriginalLanguage))
		}
		originalLanguage = *input.OriginalLanguage
	}

	conversation, created, err := s.conversations.FindOrCreateDirect(ctx, senderID, input.ReceiverID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if created {
		s.broadcaster.JoinConversation(conversation.ConversationID, senderID)
		s.broadcaster.JoinConversation(conversation.ConversationID, input.ReceiverID)
	}

	now := time.Now().UTC()
	message := &domain.Message{
		MessageID:        uuid.New(),
		Content:          content,
		OriginalLanguage: originalLanguage,
		Tone:             tone,
		Status:           domain.MessageStatusSent,
		SenderID:         senderID,
		ReceiverID:       input.ReceiverID,
		ConversationID:   conversation.ConversationID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	needsTranslation := receiver.PreferredLanguage != originalLanguage
	if needsTranslation {
		pending := domain.TranslationStatusPending
		target := receiver.PreferredLanguage
		message.TranslationStatus = &pending
		message.TargetLanguage = &target
	}

	mu := s.lockConversation(conversation.ConversationID)
	err = func() error {
		defer mu.Unlock()

		if err := s.messages.Create(ctx, message); err != nil {
			return apperrors.DatabaseError(err)
		}
		if err := s.conversations.IncrementUnread(ctx, conversation.ConversationID, senderID); err != nil {
			return apperrors.DatabaseError(err)
		}
		if err := s.conversations.Touch(ctx, conversation.ConversationID); err != nil {
			return apperrors.DatabaseError(err)
		}

		s.broadcaster.BroadcastMessage(conversation.ConversationID, message.ToResponse())
		return nil
	}()
	if err != nil {
		return nil, err
	}

	metrics.MessagesSentTotal.WithLabelValues("direct").Inc()

	if needsTranslation {
		go s.translateMessage(message, originalLanguage, receiver.PreferredLanguage, tone)
	}
	return message.ToResponse(), nil
}

// translateMessage runs the asynchronous translation follow-up and
// re-broadcasts the message once the translation lands
func (s *Service) translateMessage(message *domain.Message, source, target domain.Language, tone domain.Tone) {
	ctx, cancel := context.WithTimeout(context.Background(), translateTimeout)
	defer cancel()

	if err := s.messages.SetTranslationStatus(ctx, message.MessageID, domain.TranslationStatusTranslating); err != nil {
		// Message may have been deleted before translation started
		logger.Warn("skipping translation", zap.String("message_id", message.MessageID.String()), zap.Error(err))
		return
	}

	translated, status := s.translator.Translate(ctx, message.Content, source, target, tone)

	if status == domain.TranslationStatusFailed {
		// Clients already hold the original text from the initial broadcast,
		// so a failed translation records the status and nothing else
		if err := s.messages.SetTranslationStatus(ctx, message.MessageID, domain.TranslationStatusFailed); err != nil {
			logger.Error("failed to record translation failure",
				zap.String("message_id", message.MessageID.String()),
				zap.Error(err),
			)
		}
		return
	}

	if err := s.messages.UpdateTranslation(ctx, message.MessageID, translated, target, status); err != nil {
		logger.Error("failed to store translation",
			zap.String("message_id", message.MessageID.String()),
			zap.Error(err),
		)
		return
	}

	updated := *message
	updated.TranslatedContent = &translated
	updated.TargetLanguage = &target
	updated.TranslationStatus = &status
	s.broadcaster.BroadcastMessageUpdated(message.ConversationID, updated.ToResponse())
}

// MarkRead records a read receipt. Only the receiver of a message can mark
// it read; repeated receipts for the same message are no-ops so the unread
// counter is decremented at most once per message.
func (s *Service) MarkRead(ctx context.Context, readerID, messageID uuid.UUID) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return apperrors.MessageNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	if message.ReceiverID != readerID {
		return apperrors.ForbiddenError("only the receiver can mark a message read")
	}
	if message.ReadAt != nil {
		return nil
	}

	readAt := time.Now().UTC()
	if err := s.messages.MarkRead(ctx, messageID, readAt); err != nil {
		return apperrors.DatabaseError(err)
	}
	if err := s.conversations.DecrementUnread(ctx, message.ConversationID, readerID); err != nil {
		return apperrors.DatabaseError(err)
	}

	s.broadcaster.BroadcastRead(message.ConversationID, readerID, messageID, readAt)
	return nil
}

// DeleteMessage removes a message. Only the sender may delete.
func (s *Service) DeleteMessage(ctx context.Context, requesterID, messageID uuid.UUID) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return apperrors.MessageNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	if message.SenderID != requesterID {
		return apperrors.ForbiddenError("only the sender can delete a message")
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return apperrors.DatabaseError(err)
	}

	s.broadcaster.BroadcastMessageDeleted(message.ConversationID, messageID)
	return nil
}

// ListMessages returns a chronological page of a conversation's messages.
// The caller must be a participant.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]*domain.MessageResponse, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	responses := make([]*domain.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, m.ToResponse())
	}
	return responses, nil
}

// ListConversations returns the caller's conversations, newest activity
// first, enriched with participants, last message and unread count
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]*domain.ConversationResponse, error) {
	conversations, err := s.conversations.GetUserConversations(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	responses := make([]*domain.ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		response, err := s.buildConversationResponse(ctx, conversation, userID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, nil
}

// GetConversation returns one conversation. The caller must be a participant.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*domain.ConversationResponse, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, apperrors.ConversationNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}
	return s.buildConversationResponse(ctx, conversation, userID)
}

// CreateConversation creates a conversation explicitly. Two-party requests
// reuse the existing direct conversation when one exists; larger sets
// create a group.
func (s *Service) CreateConversation(ctx context.Context, creatorID uuid.UUID, input *domain.ConversationCreate) (*domain.ConversationResponse, error) {
	participantSet := map[uuid.UUID]struct{}{creatorID: {}}
	for _, id := range input.ParticipantIDs {
		participantSet[id] = struct{}{}
	}
	participantIDs := make([]uuid.UUID, 0, len(participantSet))
	for id := range participantSet {
		if _, err := s.getUser(ctx, id); err != nil {
			return nil, err
		}
		participantIDs = append(participantIDs, id)
	}

	if !input.IsGroup {
		if len(participantIDs) != 2 {
			return nil, apperrors.ValidationError("a direct conversation needs exactly two participants")
		}
		other := participantIDs[0]
		if other == creatorID {
			other = participantIDs[1]
		}
		conversation, created, err := s.conversations.FindOrCreateDirect(ctx, creatorID, other)
		if err != nil {
			return nil, apperrors.DatabaseError(err)
		}
		if created {
			s.broadcaster.JoinConversation(conversation.ConversationID, creatorID)
			s.broadcaster.JoinConversation(conversation.ConversationID, other)
		}
		return s.buildConversationResponse(ctx, conversation, creatorID)
	}

	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.ValidationError("a group conversation needs a name")
	}

	now := time.Now().UTC()
	conversation := &domain.Conversation{
		ConversationID: uuid.New(),
		IsGroup:        true,
		Name:           input.Name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.conversations.Create(ctx, conversation, participantIDs); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	for _, id := range participantIDs {
		s.broadcaster.JoinConversation(conversation.ConversationID, id)
	}
	return s.buildConversationResponse(ctx, conversation, creatorID)
}

func (s *Service) requireParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	isParticipant, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if !isParticipant {
		return apperrors.ForbiddenError("not a participant of this conversation")
	}
	return nil
}

func (s *Service) buildConversationResponse(ctx context.Context, conversation *domain.Conversation, viewerID uuid.UUID) (*domain.ConversationResponse, error) {
	participants, err := s.conversations.GetParticipants(ctx, conversation.ConversationID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	users := make([]domain.UserResponse, 0, len(participants))
	unread := 0
	for _, p := range participants {
		if p.UserID == viewerID {
			unread = p.UnreadCount
		}
		user, err := s.getUser(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		users = append(users, *user.ToResponse())
	}

	response := &domain.ConversationResponse{
		ConversationID: conversation.ConversationID,
		IsGroup:        conversation.IsGroup,
		Name:           conversation.Name,
		Participants:   users,
		UnreadCount:    unread,
		CreatedAt:      conversation.CreatedAt,
		UpdatedAt:      conversation.UpdatedAt,
	}

	last, err := s.messages.GetLast(ctx, conversation.ConversationID)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return nil, apperrors.DatabaseError(err)
	}
	if last != nil {
		response.LastMessage = last.ToResponse()
	}
	return response, nil
}
