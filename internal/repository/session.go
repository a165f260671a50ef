package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists issued sessions so they can be revoked
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a freshly issued session
func (r *SessionRepository) Create(ctx context.Context, s *models.SessionRecord) error {
	query := `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return apperr.Persistence("failed to create session", err)
	}
	return nil
}

// IsActive reports whether the session exists, is not revoked and has not expired
func (r *SessionRepository) IsActive(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		SELECT revoked_at IS NULL AND expires_at > $2
		FROM sessions
		WHERE id = $1
	`
	var active bool
	err := r.db.QueryRow(ctx, query, id, now).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperr.Persistence("failed to check session", err)
	}
	return active, nil
}

// Revoke marks the session as signed out
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	result, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return apperr.Persistence("failed to revoke session", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("session not found: %w", apperr.ErrNotFound)
	}
	return nil
}
