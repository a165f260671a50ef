package services

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ConnectPath is where Google redirects back to after consent
const ConnectPath = "/connect-calendar"

// ConsentURL is Google's OAuth 2.0 authorization endpoint
const ConsentURL = "https://accounts.google.com/o/oauth2/v2/auth"

const (
	stateTTL          = 15 * time.Minute
	statePurpose      = "calendar_connect"
	saveRedirectDelay = 1500 * time.Millisecond
)

// ConnectState is the progress of linking a Google Calendar
type ConnectState string

// Connect flow states
const (
	StateIdle             ConnectState = "idle"
	StateAwaitingConsent  ConnectState = "awaiting_consent"
	StateCallbackReceived ConnectState = "callback_received"
	StateConnected        ConnectState = "connected"
	StateFailed           ConnectState = "failed"
)

// Messages shown on the connect screen
const (
	MsgConnected     = "Successfully connected to Google Calendar!"
	MsgConnectFailed = "Failed to connect to Google Calendar. Please try again."
	MsgSelectionSave = "Calendar preferences saved!"
	MsgSelectionNone = "Please select at least one calendar"
)

// Fragment holds the parameters Google appends after '#' on redirect
type Fragment struct {
	AccessToken string
	TokenType   string
	ExpiresIn   string
	Scope       string
	State       string
	Error       string
}

// ParseFragment decodes a URL fragment. The leading '#' is optional.
func ParseFragment(fragment string) (Fragment, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{
		AccessToken: values.Get("access_token"),
		TokenType:   values.Get("token_type"),
		ExpiresIn:   values.Get("expires_in"),
		Scope:       values.Get("scope"),
		State:       values.Get("state"),
		Error:       values.Get("error"),
	}, nil
}

// CallbackResult is the outcome of processing a redirect fragment
type CallbackResult struct {
	State         ConnectState      `json:"state"`
	Message       string            `json:"message,omitempty"`
	Calendars     []models.Calendar `json:"calendars,omitempty"`
	ClearFragment bool              `json:"clear_fragment"`
	ReplaceURL    string            `json:"replace_url"`
	Err           error             `json:"-"`
}

// SelectionResult is the outcome of saving the selected calendars
type SelectionResult struct {
	Selected        []string `json:"selected_calendars,omitempty"`
	Message         string   `json:"message"`
	Redirect        string   `json:"redirect,omitempty"`
	RedirectDelayMS int64    `json:"redirect_delay_ms,omitempty"`
}

// ConnectService links Google Calendar accounts through the implicit grant
type ConnectService struct {
	conns    ConnectionStore
	lister   CalendarLister
	pairs    PairStore
	notifier Notifier
	oauth    *oauth2.Config
	secret   string
	now      func() time.Time
}

// NewConnectService creates a new connect service. baseURL is the public
// origin Google redirects back to.
func NewConnectService(conns ConnectionStore, lister CalendarLister, pairs PairStore, notifier Notifier, clientID, baseURL string, scopes []string, secret string) *ConnectService {
	endpoint := google.Endpoint
	endpoint.AuthURL = ConsentURL

	return &ConnectService{
		conns:    conns,
		lister:   lister,
		pairs:    pairs,
		notifier: notifier,
		oauth: &oauth2.Config{
			ClientID:    clientID,
			Endpoint:    endpoint,
			RedirectURL: strings.TrimSuffix(baseURL, "/") + ConnectPath,
			Scopes:      scopes,
		},
		secret: secret,
		now:    time.Now,
	}
}

// BeginConsent returns the Google consent URL for the user. The state
// parameter is a short-lived token bound to the user.
func (s *ConnectService) BeginConsent(userID string) (string, error) {
	now := s.now()
	state, err := signToken(s.secret, purposeClaims{
		Purpose: statePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	})
	if err != nil {
		return "", err
	}

	return s.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "token"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// HandleCallback completes the connection from the redirect fragment. A
// fragment without a token leaves the flow idle. The calendar list is
// fetched before anything is written, so a failed fetch stores nothing.
func (s *ConnectService) HandleCallback(ctx context.Context, userID, fragment string) CallbackResult {
	result := CallbackResult{State: StateIdle, ClearFragment: true, ReplaceURL: ConnectPath}

	f, err := ParseFragment(fragment)
	if err != nil {
		return s.fail(result, userID, apperr.Validation("malformed redirect fragment"))
	}
	if f.Error != "" {
		return s.fail(result, userID, apperr.Auth("authorization denied: %s", f.Error))
	}
	if f.AccessToken == "" {
		return result
	}
	result.State = StateCallbackReceived

	if f.State != "" {
		if err := s.verifyState(userID, f.State); err != nil {
			return s.fail(result, userID, err)
		}
	}

	calendars, err := s.lister.ListCalendars(ctx, f.AccessToken)
	if err != nil {
		return s.fail(result, userID, err)
	}

	conn := &models.CalendarConnection{
		UserID:      userID,
		Connected:   true,
		AccessToken: f.AccessToken,
		Calendars:   calendars,
		UpdatedAt:   s.now(),
	}
	if err := s.conns.Upsert(ctx, conn); err != nil {
		return s.fail(result, userID, err)
	}

	log.Info().Str("user_id", userID).Int("calendars", len(calendars)).Msg("Google Calendar connected")
	s.notifyPartner(ctx, userID)

	result.State = StateConnected
	result.Message = MsgConnected
	result.Calendars = calendars
	return result
}

func (s *ConnectService) fail(result CallbackResult, userID string, err error) CallbackResult {
	log.Error().Err(err).Str("user_id", userID).Msg("Failed to connect Google Calendar")
	result.State = StateFailed
	result.Message = MsgConnectFailed
	result.Err = err
	return result
}

func (s *ConnectService) verifyState(userID, state string) error {
	var claims purposeClaims
	if err := parseToken(s.secret, state, &claims, s.now); err != nil {
		return apperr.Auth("invalid state parameter")
	}
	if claims.Purpose != statePurpose || claims.Subject != userID {
		return apperr.Auth("state parameter does not belong to this session")
	}
	return nil
}

func (s *ConnectService) notifyPartner(ctx context.Context, userID string) {
	if s.pairs == nil || s.notifier == nil {
		return
	}
	pair, err := s.pairs.GetByUserID(ctx, userID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to look up pair")
		}
		return
	}
	if err := s.notifier.NotifyConnectionUpdated(pair.PartnerOf(userID), userID); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Partner not notified")
	}
}

// Connection returns the user's calendar connection
func (s *ConnectService) Connection(ctx context.Context, userID string) (*models.CalendarConnection, error) {
	return s.conns.GetByUserID(ctx, userID)
}

// SaveSelection stores which calendars to show. An empty selection is
// rejected without touching storage; duplicate IDs are dropped.
func (s *ConnectService) SaveSelection(ctx context.Context, userID string, calendarIDs []string) (*SelectionResult, error) {
	ids := dedupe(calendarIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation(MsgSelectionNone)
	}

	if err := s.conns.UpdateSelected(ctx, userID, ids); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to save calendar selection")
		return nil, err
	}

	return &SelectionResult{
		Selected:        ids,
		Message:         MsgSelectionSave,
		Redirect:        "/dashboard",
		RedirectDelayMS: saveRedirectDelay.Milliseconds(),
	}, nil
}

// ToggleCalendar adds id to selected if absent and removes it otherwise
func ToggleCalendar(selected []string, id string) []string {
	if i := slices.Index(selected, id); i >= 0 {
		return slices.Delete(slices.Clone(selected), i, i+1)
	}
	return append(slices.Clone(selected), id)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
