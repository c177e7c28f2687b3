package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyptrb/messaging/internal/domain/user/entity"
)

// UserPostgres implements the user repository for PostgreSQL
type UserPostgres struct {
	pool *pgxpool.Pool
}

// NewUserPostgres creates a new PostgreSQL user repository
func NewUserPostgres(pool *pgxpool.Pool) *UserPostgres {
	return &UserPostgres{pool: pool}
}

// Upsert inserts or updates a user keyed by uid. Last seen is bumped on
// every call.
func (r *UserPostgres) Upsert(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (
			uid, email, display_name, avatar_url, role, phone,
			email_verified, last_seen_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW())
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			role = EXCLUDED.role,
			phone = EXCLUDED.phone,
			email_verified = EXCLUDED.email_verified,
			last_seen_at = NOW(),
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		u.UID,
		nullable(u.Email),
		u.DisplayName,
		u.AvatarURL,
		u.Role,
		u.Phone,
		u.EmailVerified,
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}

	return nil
}

// GetByUID retrieves a user by principal uid
func (r *UserPostgres) GetByUID(ctx context.Context, uid string) (*entity.User, error) {
	query := `
		SELECT uid, email, display_name, avatar_url, role, phone,
		       email_verified, last_seen_at, created_at, updated_at
		FROM users
		WHERE uid = $1
	`

	row := r.pool.QueryRow(ctx, query, uid)
	return scanUser(row)
}

// TouchLastSeen bumps the last seen timestamp
func (r *UserPostgres) TouchLastSeen(ctx context.Context, uid string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_seen_at = NOW() WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("touching last seen: %w", err)
	}
	return nil
}

// UpdateProfile overwrites the user-editable profile fields
func (r *UserPostgres) UpdateProfile(ctx context.Context, uid, displayName, phone string) error {
	query := `
		UPDATE users
		SET display_name = $2, phone = $3, updated_at = NOW()
		WHERE uid = $1
	`
	_, err := r.pool.Exec(ctx, query, uid, displayName, phone)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// List retrieves users with pagination, newest first
func (r *UserPostgres) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	query := `
		SELECT uid, email, display_name, avatar_url, role, phone,
		       email_verified, last_seen_at, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u, err := scanUserRow(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUserRow(row pgx.Row) (*entity.User, error) {
	var u entity.User
	var email *string
	var lastSeen *time.Time

	err := row.Scan(
		&u.UID,
		&email,
		&u.DisplayName,
		&u.AvatarURL,
		&u.Role,
		&u.Phone,
		&u.EmailVerified,
		&lastSeen,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	if email != nil {
		u.Email = *email
	}
	u.LastSeenAt = lastSeen
	return &u, nil
}

// nullable maps an empty string to NULL so the users.email unique index
// ignores users whose auth provider did not supply an email
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
