package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyptrb/messaging/internal/domain/messaging/entity"
)

// MessagePostgres implements the message repository for PostgreSQL
type MessagePostgres struct {
	pool *pgxpool.Pool
}

// NewMessagePostgres creates a new PostgreSQL message repository
func NewMessagePostgres(pool *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{pool: pool}
}

// Append inserts a message with its attachments and updates the parent
// conversation's last-message snapshot and unread counter in one
// transaction, so a crash cannot leave the summary inconsistent with the
// message log.
func (r *MessagePostgres) Append(ctx context.Context, msg *entity.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning append tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (
			id, conversation_id, thread_id, sender_id, sender_name,
			body, sent_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`,
		msg.ID,
		msg.ConversationID,
		msg.ThreadID,
		msg.SenderID,
		msg.SenderName,
		msg.Body,
		msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	for _, att := range msg.Attachments {
		_, err = tx.Exec(ctx, `
			INSERT INTO attachments (
				id, message_id, storage_key, url, kind, size_bytes, width, height
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			att.ID,
			msg.ID,
			att.StorageKey,
			att.URL,
			att.Kind,
			att.SizeBytes,
			att.Width,
			att.Height,
		)
		if err != nil {
			return fmt.Errorf("inserting attachment: %w", err)
		}
	}

	preview := msg.Body
	if preview == "" {
		preview = "Attachment"
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message = $2,
		    last_message_at = $3,
		    unread_count = unread_count + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, msg.ConversationID, preview, msg.SentAt)
	if err != nil {
		return fmt.Errorf("updating conversation snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append tx: %w", err)
	}

	return nil
}

// GetByID retrieves a message with its attachments
func (r *MessagePostgres) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	query := `
		SELECT id, conversation_id, thread_id, sender_id, sender_name,
		       body, deleted, deleted_at, sent_at, created_at
		FROM messages
		WHERE id = $1
	`

	msg, err := scanMessageRow(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	attachments, err := r.attachmentsFor(ctx, []string{msg.ID})
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments[msg.ID]

	return msg, nil
}

// ListByConversation retrieves all messages of a conversation by send
// time ascending, attachments included
func (r *MessagePostgres) ListByConversation(ctx context.Context, conversationID string) ([]entity.Message, error) {
	query := `
		SELECT id, conversation_id, thread_id, sender_id, sender_name,
		       body, deleted, deleted_at, sent_at, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []entity.Message
	var ids []string
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, *msg)
		ids = append(ids, msg.ID)
	}

	if len(messages) == 0 {
		return messages, nil
	}

	attachments, err := r.attachmentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Attachments = attachments[messages[i].ID]
	}

	return messages, nil
}

// SoftDelete marks a message deleted. Deleting an already deleted
// message is a no-op, which makes the operation idempotent.
func (r *MessagePostgres) SoftDelete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages
		SET deleted = TRUE, deleted_at = NOW()
		WHERE id = $1 AND deleted = FALSE
	`, id)
	if err != nil {
		return fmt.Errorf("soft deleting message: %w", err)
	}
	return nil
}

// attachmentsFor loads attachments for a set of messages
func (r *MessagePostgres) attachmentsFor(ctx context.Context, messageIDs []string) (map[string][]entity.Attachment, error) {
	query := `
		SELECT id, message_id, storage_key, url, kind, size_bytes, width, height
		FROM attachments
		WHERE message_id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]entity.Attachment)
	for rows.Next() {
		var att entity.Attachment
		err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.StorageKey,
			&att.URL,
			&att.Kind,
			&att.SizeBytes,
			&att.Width,
			&att.Height,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		result[att.MessageID] = append(result[att.MessageID], att)
	}

	return result, nil
}

func scanMessageRow(row pgx.Row) (*entity.Message, error) {
	var msg entity.Message
	var deletedAt *time.Time

	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.ThreadID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Body,
		&msg.Deleted,
		&deletedAt,
		&msg.SentAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.DeletedAt = deletedAt
	return &msg, nil
}
