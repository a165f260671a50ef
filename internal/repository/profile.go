package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile by user ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, email, full_name, created_at
		FROM profiles
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

// Create inserts the profile unless one already exists for its ID and
// returns the stored row either way.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, email, full_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		profile.ID, strings.ToLower(profile.Email), profile.FullName, profile.CreatedAt,
	)
	if err != nil {
		return nil, apperr.Persistence("failed to create profile", err)
	}
	return r.GetByID(ctx, profile.ID)
}

func (r *ProfileRepository) scanOne(ctx context.Context, query string, arg string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", apperr.ErrNotFound)
		}
		return nil, apperr.Persistence("failed to get profile", err)
	}
	return &p, nil
}
