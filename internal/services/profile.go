package services

import (
	"context"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"

	"github.com/rs/zerolog/log"
)

// ProfileService handles profile-related business logic
type ProfileService struct {
	profiles ProfileStore
	now      func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles, now: time.Now}
}

// Bootstrap returns the profile of the signed in user, creating it on first
// use with the email's local part as the display name. Concurrent calls for
// the same user end up with a single profile.
func (s *ProfileService) Bootstrap(ctx context.Context, session *models.Session) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, session.UserID)
	if err == nil {
		return profile, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	profile, err = s.profiles.Create(ctx, &models.Profile{
		ID:        session.UserID,
		Email:     session.Email,
		FullName:  LocalPart(session.Email),
		CreatedAt: s.now(),
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to create profile")
		return nil, err
	}

	log.Info().Str("user_id", session.UserID).Msg("Profile created")
	return profile, nil
}

