package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/crypto"
	"calendar-share/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectionRepository handles database operations for calendar connections.
// Access tokens pass through the sealer on every write and read.
type ConnectionRepository struct {
	db     *pgxpool.Pool
	sealer crypto.Sealer
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *pgxpool.Pool, sealer crypto.Sealer) *ConnectionRepository {
	if sealer == nil {
		sealer = crypto.Plaintext{}
	}
	return &ConnectionRepository{db: db, sealer: sealer}
}

// GetByUserID retrieves the connection of a user
func (r *ConnectionRepository) GetByUserID(ctx context.Context, userID string) (*models.CalendarConnection, error) {
	query := `
		SELECT user_id, google_calendar_connected, google_access_token, calendars, selected_calendars, updated_at
		FROM calendar_connections
		WHERE user_id = $1
	`
	var (
		c      models.CalendarConnection
		sealed string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.UserID, &c.Connected, &sealed, &c.Calendars, &c.SelectedCalendars, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("calendar connection not found: %w", apperr.ErrNotFound)
		}
		return nil, apperr.Persistence("failed to get calendar connection", err)
	}

	c.AccessToken, err = r.sealer.Open(sealed)
	if err != nil {
		return nil, apperr.Persistence("failed to open access token", err)
	}
	return &c, nil
}

// Upsert creates or replaces the connection flags, token and calendar list.
// selected_calendars is left untouched on conflict.
func (r *ConnectionRepository) Upsert(ctx context.Context, c *models.CalendarConnection) error {
	sealed, err := r.sealer.Seal(c.AccessToken)
	if err != nil {
		return apperr.Persistence("failed to seal access token", err)
	}

	calendars := c.Calendars
	if calendars == nil {
		calendars = []models.Calendar{}
	}
	selected := c.SelectedCalendars
	if selected == nil {
		selected = []string{}
	}

	query := `
		INSERT INTO calendar_connections
			(user_id, google_calendar_connected, google_access_token, calendars, selected_calendars, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			google_calendar_connected = EXCLUDED.google_calendar_connected,
			google_access_token = EXCLUDED.google_access_token,
			calendars = EXCLUDED.calendars,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Exec(ctx, query, c.UserID, c.Connected, sealed, calendars, selected, time.Now())
	if err != nil {
		return apperr.Persistence("failed to upsert calendar connection", err)
	}
	return nil
}

// UpdateSelected replaces the selected calendar IDs of an existing connection
func (r *ConnectionRepository) UpdateSelected(ctx context.Context, userID string, calendarIDs []string) error {
	query := `UPDATE calendar_connections SET selected_calendars = $1, updated_at = $2 WHERE user_id = $3`
	result, err := r.db.Exec(ctx, query, calendarIDs, time.Now(), userID)
	if err != nil {
		return apperr.Persistence("failed to update selected calendars", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Persistence("failed to update selected calendars",
			fmt.Errorf("calendar connection not found: %w", apperr.ErrNotFound))
	}
	return nil
}
