package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linguachat-backend/internal/domain"
)

// ConversationRepository handles conversation and participant persistence
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Create inserts a conversation and its participants in one transaction
func (r *ConversationRepository) Create(ctx context.Context, conversation *domain.Conversation, participantIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO conversations (
			conversation_id, is_group, name, direct_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, query,
		conversation.ConversationID,
		conversation.IsGroup,
		conversation.Name,
		conversation.DirectKey,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	for _, userID := range participantIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, unread_count, joined_at)
			VALUES ($1, $2, 0, $3)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
		`, conversation.ConversationID, userID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FindOrCreateDirect returns the unique direct conversation between two
// users, creating it (with both participant rows) when absent. The unique
// direct_key index makes this safe under concurrent first-contact sends:
// the losing writer's insert is a no-op and both callers read the same row.
func (r *ConversationRepository) FindOrCreateDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	key := domain.DirectConversationKey(userA, userB)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	newID := uuid.New()

	var created bool
	insertQuery := `
		INSERT INTO conversations (conversation_id, is_group, direct_key, created_at, updated_at)
		VALUES ($1, FALSE, $2, $3, $3)
		ON CONFLICT (direct_key) DO NOTHING
	`
	cmdTag, err := tx.Exec(ctx, insertQuery, newID, key, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert direct conversation: %w", err)
	}
	created = cmdTag.RowsAffected() > 0

	conversation := &domain.Conversation{}
	selectQuery := `
		SELECT conversation_id, is_group, name, direct_key, created_at, updated_at
		FROM conversations
		WHERE direct_key = $1
	`
	err = tx.QueryRow(ctx, selectQuery, key).Scan(
		&conversation.ConversationID,
		&conversation.IsGroup,
		&conversation.Name,
		&conversation.DirectKey,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load direct conversation: %w", err)
	}

	if created {
		for _, userID := range []uuid.UUID{userA, userB} {
			_, err = tx.Exec(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id, unread_count, joined_at)
				VALUES ($1, $2, 0, $3)
				ON CONFLICT (conversation_id, user_id) DO NOTHING
			`, conversation.ConversationID, userID, now)
			if err != nil {
				return nil, false, fmt.Errorf("failed to add participant: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit: %w", err)
	}
	return conversation, created, nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT conversation_id, is_group, name, direct_key, created_at, updated_at
		FROM conversations
		WHERE conversation_id = $1
	`

	conversation := &domain.Conversation{}
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ConversationID,
		&conversation.IsGroup,
		&conversation.Name,
		&conversation.DirectKey,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conversation, nil
}

// GetUserConversations retrieves all conversations for a user, newest activity first
func (r *ConversationRepository) GetUserConversations(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	query := `
		SELECT c.conversation_id, c.is_group, c.name, c.direct_key, c.created_at, c.updated_at
		FROM conversations c
		INNER JOIN conversation_participants cp ON c.conversation_id = cp.conversation_id
		WHERE cp.user_id = $1
		ORDER BY c.updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conversation := &domain.Conversation{}
		err := rows.Scan(
			&conversation.ConversationID,
			&conversation.IsGroup,
			&conversation.Name,
			&conversation.DirectKey,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conversation)
	}
	return conversations, rows.Err()
}

// GetParticipants retrieves the participant rows of a conversation
func (r *ConversationRepository) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]*domain.Participant, error) {
	query := `
		SELECT conversation_id, user_id, unread_count, last_read_at, joined_at
		FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p := &domain.Participant{}
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.UnreadCount, &p.LastReadAt, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// GetParticipantUserIDs retrieves just the user IDs of a conversation's participants
func (r *ConversationRepository) GetParticipantUserIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM conversation_participants WHERE conversation_id = $1`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant ids: %w", err)
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}

// IsParticipant checks if a user is a participant in a conversation
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

// AddParticipant adds a user to a conversation
func (r *ConversationRepository) AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, unread_count, joined_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes a user from a conversation
func (r *ConversationRepository) RemoveParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUnread bumps the unread counter for every participant except the
// sender. Single UPDATE so concurrent sends never lose a count.
func (r *ConversationRepository) IncrementUnread(ctx context.Context, conversationID, senderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversation_participants
		SET unread_count = unread_count + 1
		WHERE conversation_id = $1 AND user_id <> $2
	`, conversationID, senderID)
	if err != nil {
		return fmt.Errorf("failed to increment unread: %w", err)
	}
	return nil
}

// DecrementUnread decrements one participant's unread counter, floored at
// zero, and records the read watermark
func (r *ConversationRepository) DecrementUnread(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversation_participants
		SET unread_count = GREATEST(unread_count - 1, 0),
		    last_read_at = NOW()
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to decrement unread: %w", err)
	}
	return nil
}

// GetUnreadCount returns one participant's unread counter
func (r *ConversationRepository) GetUnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT unread_count FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

// Touch bumps the conversation's updated_at, used for list ordering
func (r *ConversationRepository) Touch(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE conversation_id = $1`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation; messages and participants cascade
func (r *ConversationRepository) Delete(ctx context.Context, conversationID uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
