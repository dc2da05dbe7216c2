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

// MessageRepository handles message persistence
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `
	message_id, content, original_language, translated_content, target_language,
	tone, status, translation_status, sender_id, receiver_id, conversation_id,
	created_at, updated_at, read_at
`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(
		&m.MessageID,
		&m.Content,
		&m.OriginalLanguage,
		&m.TranslatedContent,
		&m.TargetLanguage,
		&m.Tone,
		&m.Status,
		&m.TranslationStatus,
		&m.SenderID,
		&m.ReceiverID,
		&m.ConversationID,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.ReadAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	return m, nil
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (
			message_id, content, original_language, translated_content, target_language,
			tone, status, translation_status, sender_id, receiver_id, conversation_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		message.MessageID,
		message.Content,
		message.OriginalLanguage,
		message.TranslatedContent,
		message.TargetLanguage,
		message.Tone,
		message.Status,
		message.TranslationStatus,
		message.SenderID,
		message.ReceiverID,
		message.ConversationID,
		message.CreatedAt,
		message.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE message_id = $1`
	return scanMessage(r.pool.QueryRow(ctx, query, messageID))
}

// UpdateTranslation writes the translation result onto an already-sent message
func (r *MessageRepository) UpdateTranslation(
	ctx context.Context,
	messageID uuid.UUID,
	translatedContent string,
	targetLanguage domain.Language,
	status domain.TranslationStatus,
) error {
	cmdTag, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET translated_content = $2,
		    target_language = $3,
		    translation_status = $4,
		    updated_at = NOW()
		WHERE message_id = $1
	`, messageID, translatedContent, targetLanguage, status)
	if err != nil {
		return fmt.Errorf("failed to update translation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTranslationStatus updates only the translation lifecycle tag
func (r *MessageRepository) SetTranslationStatus(ctx context.Context, messageID uuid.UUID, status domain.TranslationStatus) error {
	cmdTag, err := r.pool.Exec(ctx, `
		UPDATE messages SET translation_status = $2, updated_at = NOW() WHERE message_id = $1
	`, messageID, status)
	if err != nil {
		return fmt.Errorf("failed to set translation status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead sets the message status to read with the given timestamp
func (r *MessageRepository) MarkRead(ctx context.Context, messageID uuid.UUID, readAt time.Time) error {
	cmdTag, err := r.pool.Exec(ctx, `
		UPDATE messages SET status = $2, read_at = $3, updated_at = NOW() WHERE message_id = $1
	`, messageID, domain.MessageStatusRead, readAt)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a message
func (r *MessageRepository) Delete(ctx context.Context, messageID uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE message_id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByConversation retrieves a page of messages in chronological order.
// Offset pages backwards from the newest message.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT * FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		) page
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetLast retrieves the newest message of a conversation, or ErrNotFound
func (r *MessageRepository) GetLast(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanMessage(r.pool.QueryRow(ctx, query, conversationID))
}
