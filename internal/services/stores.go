package services

import (
	"context"
	"time"

	"calendar-share/internal/models"
)

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	MarkConfirmed(ctx context.Context, userID string, at time.Time) error
}

// SessionRecordStore persists issued sessions so they can be revoked
type SessionRecordStore interface {
	Create(ctx context.Context, s *models.SessionRecord) error
	IsActive(ctx context.Context, id string, now time.Time) (bool, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

// ProfileStore persists profiles
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
}

// ConnectionStore persists calendar connections
type ConnectionStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.CalendarConnection, error)
	Upsert(ctx context.Context, conn *models.CalendarConnection) error
	UpdateSelected(ctx context.Context, userID string, calendarIDs []string) error
}

// PairStore persists pairs
type PairStore interface {
	Create(ctx context.Context, pair *models.Pair) error
	GetByID(ctx context.Context, id string) (*models.Pair, error)
	GetByUserID(ctx context.Context, userID string) (*models.Pair, error)
	Delete(ctx context.Context, id string) error
	UserHasPair(ctx context.Context, userID string) (bool, error)
	ArePaired(ctx context.Context, userID, otherID string) (bool, error)
}

// InviteStore persists pending pair invites
type InviteStore interface {
	// Create stores the invite, or refreshes the existing one for the same
	// inviter and email and loads its id into invite
	Create(ctx context.Context, invite *models.Invite) error
	GetByID(ctx context.Context, id string) (*models.Invite, error)
	ListForEmail(ctx context.Context, email string) ([]models.Invite, error)
	Delete(ctx context.Context, id string) error
}

// CalendarLister fetches the calendar list of a Google account
type CalendarLister interface {
	ListCalendars(ctx context.Context, token string) ([]models.Calendar, error)
}

// EventSource produces the events of one connection inside [from, to)
type EventSource interface {
	Events(ctx context.Context, conn *models.CalendarConnection, from, to time.Time, owner string) ([]models.Event, error)
}

// Notifier pushes realtime updates to connected users
type Notifier interface {
	NotifyInvite(inviteeID string, invite *models.Invite) error
	NotifyPairCreated(partnerID string, pair *models.Pair) error
	NotifyPairDeleted(partnerID string) error
	NotifyConnectionUpdated(partnerID, userID string) error
}
