package services

import (
	"context"
	"fmt"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"
	"calendar-share/internal/schedule"

	"github.com/rs/zerolog/log"
)

const defaultPartnerName = "Partner"

// SharedCalendar is the merged week of a viewer and the calendar owner
type SharedCalendar struct {
	PartnerName string `json:"partner_name"`
	schedule.WeekView
	Message    string `json:"message,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
}

// SharedService loads both sides of a shared calendar
type SharedService struct {
	profiles    ProfileStore
	conns       ConnectionStore
	pairs       PairStore
	source      EventSource
	loc         *time.Location
	weekStart   time.Weekday
	requirePair bool
	now         func() time.Time
}

// SharedOptions configures a SharedService
type SharedOptions struct {
	Location    *time.Location
	WeekStart   time.Weekday
	RequirePair bool
}

// NewSharedService creates a new shared calendar service
func NewSharedService(profiles ProfileStore, conns ConnectionStore, pairs PairStore, source EventSource, opts SharedOptions) *SharedService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &SharedService{
		profiles:    profiles,
		conns:       conns,
		pairs:       pairs,
		source:      source,
		loc:         loc,
		weekStart:   opts.WeekStart,
		requirePair: opts.RequirePair,
		now:         time.Now,
	}
}

// Week resolves a "YYYY-MM-DD" value to a display week
func (s *SharedService) Week(value string) (schedule.Week, error) {
	w, err := schedule.ParseWeek(value, s.now(), s.weekStart, s.loc)
	if err != nil {
		return schedule.Week{}, apperr.Validation("invalid week %q, expected YYYY-MM-DD", value)
	}
	return w, nil
}

// CanView reports an error when viewerID may not see partnerID's calendar
func (s *SharedService) CanView(ctx context.Context, viewerID, partnerID string) error {
	if !s.requirePair || viewerID == partnerID {
		return nil
	}
	paired, err := s.pairs.ArePaired(ctx, viewerID, partnerID)
	if err != nil {
		return err
	}
	if !paired {
		return fmt.Errorf("calendar of %s is not shared with you: %w", partnerID, apperr.ErrForbidden)
	}
	return nil
}

// Load builds the shared calendar of partnerID as seen by viewerID for week.
// A side whose events cannot be fetched is shown empty with a message.
func (s *SharedService) Load(ctx context.Context, viewerID, partnerID string, week schedule.Week) (*SharedCalendar, error) {
	if err := s.CanView(ctx, viewerID, partnerID); err != nil {
		return nil, err
	}

	result := &SharedCalendar{PartnerName: defaultPartnerName}
	profile, err := s.profiles.GetByID(ctx, partnerID)
	switch {
	case err == nil:
		if profile.FullName != "" {
			result.PartnerName = profile.FullName
		}
	case apperr.IsNotFound(err):
	default:
		return nil, err
	}

	partner, err := s.events(ctx, partnerID, week, models.OwnerPartner)
	if err != nil {
		result.Message = remoteMessage(err)
	}
	self, err := s.events(ctx, viewerID, week, models.OwnerSelf)
	if err != nil && result.Message == "" {
		result.Message = remoteMessage(err)
	}

	result.WeekView = schedule.BuildView(week, s.now(), self, partner)
	return result, nil
}

func (s *SharedService) events(ctx context.Context, userID string, week schedule.Week, owner string) ([]models.Event, error) {
	conn, err := s.conns.GetByUserID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load calendar connection")
		return nil, err
	}
	if !conn.HasToken() {
		return nil, nil
	}

	events, err := s.source.Events(ctx, conn, week.Start, week.End(), owner)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("week", week.Key()).Msg("Failed to fetch events")
		return nil, err
	}
	return events, nil
}

func remoteMessage(err error) string {
	if apperr.IsRemote(err) {
		return "Could not load events from Google Calendar"
	}
	return "Could not load calendar data"
}
