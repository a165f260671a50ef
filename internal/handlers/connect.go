package handlers

import (
	"context"
	"fmt"
	"net/http"

	"calendar-share/internal/apperr"
	"calendar-share/internal/middleware"
	"calendar-share/internal/models"
	"calendar-share/internal/services"

	"github.com/rs/zerolog/log"
)

// ConnectFlow is the calendar connection API the handlers need
type ConnectFlow interface {
	BeginConsent(userID string) (string, error)
	HandleCallback(ctx context.Context, userID, fragment string) services.CallbackResult
	SaveSelection(ctx context.Context, userID string, calendarIDs []string) (*services.SelectionResult, error)
	Connection(ctx context.Context, userID string) (*models.CalendarConnection, error)
}

// ConnectView is the view model of the connect screen
type ConnectView struct {
	State             services.ConnectState `json:"state"`
	Connected         bool                  `json:"connected"`
	Calendars         []models.Calendar     `json:"calendars"`
	SelectedCalendars []string              `json:"selected_calendars"`
	Message           *Message              `json:"message,omitempty"`
}

// ConnectHandler handles Google Calendar connection requests
type ConnectHandler struct {
	flow ConnectFlow
}

// NewConnectHandler creates a new connect handler
func NewConnectHandler(flow ConnectFlow) *ConnectHandler {
	return &ConnectHandler{flow: flow}
}

// View handles GET /connect-calendar
func (h *ConnectHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	view := ConnectView{State: services.StateIdle, Calendars: []models.Calendar{}, SelectedCalendars: []string{}}
	conn, err := h.flow.Connection(ctx, userID)
	switch {
	case err == nil:
		view.Connected = conn.Connected
		if conn.Connected {
			view.State = services.StateConnected
		}
		if conn.Calendars != nil {
			view.Calendars = conn.Calendars
		}
		if conn.SelectedCalendars != nil {
			view.SelectedCalendars = conn.SelectedCalendars
		}
	case !apperr.IsNotFound(err):
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load calendar connection")
		view.Message = errorMessage("Failed to load calendar connection")
	}

	respondJSON(w, http.StatusOK, view)
}

// BeginResponse carries the consent URL the browser navigates to
type BeginResponse struct {
	State   services.ConnectState `json:"state"`
	AuthURL string                `json:"auth_url"`
}

// Begin handles POST /api/v1/calendar/connect
func (h *ConnectHandler) Begin(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	authURL, err := h.flow.BeginConsent(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to build consent URL")
		respondError(w, "Failed to start Google Calendar connection", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, BeginResponse{State: services.StateAwaitingConsent, AuthURL: authURL})
}

// CallbackRequest carries the URL fragment Google redirected with
type CallbackRequest struct {
	Fragment string `json:"fragment"`
}

// Callback handles POST /api/v1/calendar/callback
func (h *ConnectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res := h.flow.HandleCallback(ctx, userID, req.Fragment)
	status := http.StatusOK
	if res.State == services.StateFailed {
		status = statusFor(res.Err, http.StatusBadRequest)
	}
	respondJSON(w, status, res)
}

// SelectionRequest is the body of a selection save
type SelectionRequest struct {
	CalendarIDs []string `json:"calendar_ids"`
}

// SaveSelection handles PUT /api/v1/calendar/selection
func (h *ConnectHandler) SaveSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SelectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.flow.SaveSelection(ctx, userID, req.CalendarIDs)
	if err != nil {
		if apperr.IsValidation(err) {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondError(w, fmt.Sprintf("Failed to save calendar preferences: %v", err), statusFor(err, http.StatusBadRequest))
		return
	}

	log.Info().Str("user_id", userID).Strs("calendars", res.Selected).Msg("Calendar selection saved")
	respondJSON(w, http.StatusOK, res)
}

// Connection handles GET /api/v1/calendar/connection
func (h *ConnectHandler) Connection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	conn, err := h.flow.Connection(ctx, userID)
	if err != nil {
		respondServiceError(w, err, http.StatusUnauthorized, "Failed to load calendar connection")
		return
	}
	respondJSON(w, http.StatusOK, conn)
}
