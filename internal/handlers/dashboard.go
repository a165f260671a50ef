package handlers

import (
	"context"
	"net/http"

	"calendar-share/internal/apperr"
	"calendar-share/internal/middleware"
	"calendar-share/internal/models"

	"github.com/rs/zerolog/log"
)

// ProfileBootstrapper loads or lazily creates the signed in user's profile
type ProfileBootstrapper interface {
	Bootstrap(ctx context.Context, session *models.Session) (*models.Profile, error)
}

// ConnectionReader reads a user's calendar connection
type ConnectionReader interface {
	Connection(ctx context.Context, userID string) (*models.CalendarConnection, error)
}

// ShareLinker builds the public link to a user's shared calendar
type ShareLinker interface {
	ShareLink(userID string) string
}

// DashboardView is the view model of the dashboard
type DashboardView struct {
	Profile   *models.Profile `json:"profile"`
	Connected bool            `json:"connected"`
	ShareLink string          `json:"share_link,omitempty"`
	Message   *Message        `json:"message,omitempty"`
}

// DashboardHandler handles the dashboard view
type DashboardHandler struct {
	profiles ProfileBootstrapper
	conns    ConnectionReader
	links    ShareLinker
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(profiles ProfileBootstrapper, conns ConnectionReader, links ShareLinker) *DashboardHandler {
	return &DashboardHandler{profiles: profiles, conns: conns, links: links}
}

// Dashboard handles GET /dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	profile, err := h.profiles.Bootstrap(ctx, session)
	if err != nil {
		log.Error().Err(err).Str("user_id", session.UserID).Msg("Error loading profile")
		respondJSON(w, http.StatusInternalServerError, DashboardView{
			Message: errorMessage("Error loading profile"),
		})
		return
	}

	view := DashboardView{
		Profile:   profile,
		ShareLink: h.links.ShareLink(session.UserID),
	}

	conn, err := h.conns.Connection(ctx, session.UserID)
	switch {
	case err == nil:
		view.Connected = conn.Connected
	case !apperr.IsNotFound(err):
		log.Error().Err(err).Str("user_id", session.UserID).Msg("Error checking calendar connection")
	}

	respondJSON(w, http.StatusOK, view)
}
