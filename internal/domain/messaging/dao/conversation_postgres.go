package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyptrb/messaging/internal/domain/messaging/entity"
)

// ConversationPostgres implements the conversation repository for PostgreSQL
type ConversationPostgres struct {
	pool *pgxpool.Pool
}

// NewConversationPostgres creates a new PostgreSQL conversation repository
func NewConversationPostgres(pool *pgxpool.Pool) *ConversationPostgres {
	return &ConversationPostgres{pool: pool}
}

// Create inserts a new conversation
func (r *ConversationPostgres) Create(ctx context.Context, conv *entity.Conversation) error {
	query := `
		INSERT INTO conversations (
			id, thread_id, name,
			participant1_id, participant1_name, participant1_avatar,
			participant2_id, participant2_name, participant2_avatar,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.ThreadID,
		conv.Name,
		conv.Participant1ID,
		conv.Participant1Name,
		conv.Participant1Avatar,
		conv.Participant2ID,
		conv.Participant2Name,
		conv.Participant2Avatar,
		conv.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by id
func (r *ConversationPostgres) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	query := selectConversation + ` WHERE id = $1`

	conv, err := scanConversationRow(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return conv, nil
}

// ListByThreadForUser retrieves the active conversations of a thread in
// which the given user occupies a participant slot
func (r *ConversationPostgres) ListByThreadForUser(ctx context.Context, threadID, uid string) ([]entity.Conversation, error) {
	query := selectConversation + `
		WHERE thread_id = $1 AND status = 'active'
		  AND (participant1_id = $2 OR participant2_id = $2)
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, threadID, uid)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []entity.Conversation
	for rows.Next() {
		conv, err := scanConversationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, *conv)
	}

	return conversations, nil
}

// SetParticipant2 fills the second participant slot if and only if it is
// still empty. The WHERE clause is the atomic check-and-set that makes
// the solo→paired transition exactly-once under concurrent joiners; a
// false return means someone else won.
func (r *ConversationPostgres) SetParticipant2(ctx context.Context, id string, p entity.ParticipantSnapshot) (bool, error) {
	query := `
		UPDATE conversations
		SET participant2_id = $2,
		    participant2_name = $3,
		    participant2_avatar = $4,
		    updated_at = NOW()
		WHERE id = $1 AND participant2_id IS NULL
	`

	tag, err := r.pool.Exec(ctx, query, id, p.ID, p.Name, p.Avatar)
	if err != nil {
		return false, fmt.Errorf("setting participant2: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ResetUnread clears the unread counter
func (r *ConversationPostgres) ResetUnread(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET unread_count = 0 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("resetting unread count: %w", err)
	}
	return nil
}

const selectConversation = `
	SELECT id, thread_id, name,
	       participant1_id, participant1_name, participant1_avatar,
	       participant2_id, participant2_name, participant2_avatar,
	       last_message, last_message_at, unread_count,
	       status, created_at, updated_at
	FROM conversations
`

func scanConversationRow(row pgx.Row) (*entity.Conversation, error) {
	var conv entity.Conversation
	var lastMessageAt *time.Time

	err := row.Scan(
		&conv.ID,
		&conv.ThreadID,
		&conv.Name,
		&conv.Participant1ID,
		&conv.Participant1Name,
		&conv.Participant1Avatar,
		&conv.Participant2ID,
		&conv.Participant2Name,
		&conv.Participant2Avatar,
		&conv.LastMessage,
		&lastMessageAt,
		&conv.UnreadCount,
		&conv.Status,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conv.LastMessageAt = lastMessageAt
	return &conv, nil
}
