package repository

import (
	"context"
	"errors"
	"fmt"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InviteRepository handles database operations for pending pair invites
type InviteRepository struct {
	db *pgxpool.Pool
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{db: db}
}

// Create stores the invite. A repeated invite from the same user to the
// same email refreshes created_at and keeps the original id, which is
// written back to invite.
func (r *InviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	query := `
		INSERT INTO invites (id, inviter_id, invitee_email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (inviter_id, invitee_email) DO UPDATE SET created_at = EXCLUDED.created_at
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		invite.ID, invite.InviterID, invite.InviteeEmail, invite.CreatedAt,
	).Scan(&invite.ID)
	if err != nil {
		return apperr.Persistence("failed to create invite", err)
	}
	return nil
}

// GetByID retrieves an invite by ID
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	query := `
		SELECT id, inviter_id, invitee_email, created_at
		FROM invites
		WHERE id = $1
	`
	var inv models.Invite
	err := r.db.QueryRow(ctx, query, id).Scan(&inv.ID, &inv.InviterID, &inv.InviteeEmail, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invite not found: %w", apperr.ErrNotFound)
		}
		return nil, apperr.Persistence("failed to get invite", err)
	}
	return &inv, nil
}

// ListForEmail returns the invites addressed to email, newest first
func (r *InviteRepository) ListForEmail(ctx context.Context, email string) ([]models.Invite, error) {
	query := `
		SELECT id, inviter_id, invitee_email, created_at
		FROM invites
		WHERE invitee_email = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, apperr.Persistence("failed to list invites", err)
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var inv models.Invite
		if err := rows.Scan(&inv.ID, &inv.InviterID, &inv.InviteeEmail, &inv.CreatedAt); err != nil {
			return nil, apperr.Persistence("failed to scan invite", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("failed to list invites", err)
	}
	return invites, nil
}

// Delete deletes an invite by ID
func (r *InviteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM invites WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("failed to delete invite", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invite not found: %w", apperr.ErrNotFound)
	}
	return nil
}
