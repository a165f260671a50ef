package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmailTaken is returned when an account already exists for an email
var ErrEmailTaken = errors.New("email already registered")

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name_hint, email_confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.FullNameHint,
		user.EmailConfirmedAt, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return apperr.Persistence("failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", strings.ToLower(email))
}

func (r *UserRepository) getOne(ctx context.Context, column, value string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, full_name_hint, email_confirmed_at, created_at
		FROM users
		WHERE ` + column + ` = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullNameHint,
		&user.EmailConfirmedAt, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
		}
		return nil, apperr.Persistence("failed to get user", err)
	}
	return &user, nil
}

// MarkConfirmed records that the user confirmed their email. An earlier
// confirmation time is kept.
func (r *UserRepository) MarkConfirmed(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE users SET email_confirmed_at = COALESCE(email_confirmed_at, $1) WHERE id = $2`
	result, err := r.db.Exec(ctx, query, at, userID)
	if err != nil {
		return apperr.Persistence("failed to confirm user", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
