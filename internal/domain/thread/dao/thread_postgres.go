package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyptrb/messaging/internal/domain/thread/entity"
)

// ThreadPostgres implements the thread repository for PostgreSQL
type ThreadPostgres struct {
	pool *pgxpool.Pool
}

// NewThreadPostgres creates a new PostgreSQL thread repository
func NewThreadPostgres(pool *pgxpool.Pool) *ThreadPostgres {
	return &ThreadPostgres{pool: pool}
}

// UpsertByCampaign inserts a thread or refreshes the title of the
// existing thread for the same (campaign_id, owner_id) pair. The unique
// constraint is the serialization point for concurrent reconciliation:
// a conflicting concurrent insert resolves to the stored row, never to
// an error. updated_at moves only when the title actually changed.
func (r *ThreadPostgres) UpsertByCampaign(ctx context.Context, t *entity.Thread) (*entity.Thread, error) {
	query := `
		INSERT INTO threads (
			id, title, description, campaign_id, owner_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (campaign_id, owner_id) DO UPDATE SET
			title = EXCLUDED.title,
			updated_at = CASE
				WHEN threads.title IS DISTINCT FROM EXCLUDED.title THEN NOW()
				ELSE threads.updated_at
			END
		RETURNING id, title, description, campaign_id, owner_id, status, created_at, updated_at
	`

	row := r.pool.QueryRow(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.CampaignID,
		t.OwnerID,
		t.Status,
	)

	stored, err := scanThreadRow(row)
	if err != nil {
		return nil, fmt.Errorf("upserting thread: %w", err)
	}
	return stored, nil
}

// GetByID retrieves a thread by id
func (r *ThreadPostgres) GetByID(ctx context.Context, id string) (*entity.Thread, error) {
	query := `
		SELECT id, title, description, campaign_id, owner_id, status, created_at, updated_at
		FROM threads
		WHERE id = $1
	`

	t, err := scanThreadRow(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning thread: %w", err)
	}
	return t, nil
}

// ListByOwner retrieves the active threads owned by a user, most
// recently updated first
func (r *ThreadPostgres) ListByOwner(ctx context.Context, ownerID string) ([]entity.Thread, error) {
	query := `
		SELECT id, title, description, campaign_id, owner_id, status, created_at, updated_at
		FROM threads
		WHERE owner_id = $1 AND status = 'active'
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []entity.Thread
	for rows.Next() {
		t, err := scanThreadRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning thread row: %w", err)
		}
		threads = append(threads, *t)
	}

	return threads, nil
}

func scanThreadRow(row pgx.Row) (*entity.Thread, error) {
	var t entity.Thread
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.CampaignID,
		&t.OwnerID,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
