package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"calendar-share/internal/middleware"
	"calendar-share/internal/schedule"
	"calendar-share/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SharedLoader loads shared calendars
type SharedLoader interface {
	Week(value string) (schedule.Week, error)
	Load(ctx context.Context, viewerID, partnerID string, week schedule.Week) (*services.SharedCalendar, error)
}

// SharedHandler handles shared calendar requests
type SharedHandler struct {
	shared SharedLoader
}

// NewSharedHandler creates a new shared calendar handler
func NewSharedHandler(shared SharedLoader) *SharedHandler {
	return &SharedHandler{shared: shared}
}

func (h *SharedHandler) load(w http.ResponseWriter, r *http.Request) (*services.SharedCalendar, schedule.Week, bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	partnerID := chi.URLParam(r, "partnerId")

	week, err := h.shared.Week(r.URL.Query().Get("week"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return nil, schedule.Week{}, false
	}

	cal, err := h.shared.Load(ctx, userID, partnerID, week)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("partner_id", partnerID).Msg("Failed to load shared calendar")
		respondServiceError(w, err, http.StatusBadRequest, "Failed to load shared calendar")
		return nil, schedule.Week{}, false
	}
	return cal, week, true
}

// Shared handles GET /shared/{partnerId} and GET /api/v1/shared/{partnerId}
func (h *SharedHandler) Shared(w http.ResponseWriter, r *http.Request) {
	cal, _, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, cal)
}

// ICS handles GET /api/v1/shared/{partnerId}/week.ics
func (h *SharedHandler) ICS(w http.ResponseWriter, r *http.Request) {
	cal, week, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := schedule.WriteICS(&buf, "You & "+cal.PartnerName, week, cal.Events); err != nil {
		log.Error().Err(err).Msg("Failed to write calendar export")
		respondError(w, "Failed to export calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="week-%s.ics"`, cal.WeekStart))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
