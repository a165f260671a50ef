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

// ErrAlreadyPaired is returned when either user already belongs to a pair
var ErrAlreadyPaired = errors.New("user is already in a pair")

// PairRepository handles database operations for pairs
type PairRepository struct {
	db *pgxpool.Pool
}

// NewPairRepository creates a new pair repository
func NewPairRepository(db *pgxpool.Pool) *PairRepository {
	return &PairRepository{db: db}
}

// Create creates a new pair and its two member rows in one transaction.
// pair_members is keyed by user, so a user already in any pair fails the
// insert with ErrAlreadyPaired.
func (r *PairRepository) Create(ctx context.Context, pair *models.Pair) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO pairs (id, user_a_id, user_b_id, created_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, query, pair.ID, pair.UserAID, pair.UserBID, pair.CreatedAt); err != nil {
			return err
		}

		members := `INSERT INTO pair_members (user_id, pair_id) VALUES ($1, $3), ($2, $3)`
		_, err := tx.Exec(ctx, members, pair.UserAID, pair.UserBID, pair.ID)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyPaired
		}
		return apperr.Persistence("failed to create pair", err)
	}
	return nil
}

// GetByID retrieves a pair by ID
func (r *PairRepository) GetByID(ctx context.Context, id string) (*models.Pair, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM pairs
		WHERE id = $1
	`
	var pair models.Pair
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pair.ID, &pair.UserAID, &pair.UserBID, &pair.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pair not found: %w", apperr.ErrNotFound)
		}
		return nil, apperr.Persistence("failed to get pair", err)
	}
	return &pair, nil
}

// GetByUserID retrieves a pair by user ID
func (r *PairRepository) GetByUserID(ctx context.Context, userID string) (*models.Pair, error) {
	query := `
		SELECT p.id, p.user_a_id, p.user_b_id, p.created_at
		FROM pair_members m
		JOIN pairs p ON p.id = m.pair_id
		WHERE m.user_id = $1
	`
	var pair models.Pair
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&pair.ID, &pair.UserAID, &pair.UserBID, &pair.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pair not found: %w", apperr.ErrNotFound)
		}
		return nil, apperr.Persistence("failed to get pair by user id", err)
	}
	return &pair, nil
}

// Delete deletes a pair by ID
func (r *PairRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM pairs WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperr.Persistence("failed to delete pair", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pair not found: %w", apperr.ErrNotFound)
	}
	return nil
}

// UserHasPair checks if a user is already in a pair
func (r *PairRepository) UserHasPair(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM pair_members WHERE user_id = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("failed to check if user has pair", err)
	}
	return exists, nil
}

// ArePaired reports whether the two users share a pair
func (r *PairRepository) ArePaired(ctx context.Context, userID, otherID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM pairs
			WHERE (user_a_id = $1 AND user_b_id = $2) OR (user_a_id = $2 AND user_b_id = $1)
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, userID, otherID).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("failed to check pair membership", err)
	}
	return exists, nil
}
