package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/middleware"
	"calendar-share/internal/models"
	"calendar-share/internal/schedule"
	"calendar-share/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var testSession = &models.Session{ID: "s1", UserID: "u1", Email: "ann@example.com"}

func withSession(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(middleware.WithSession(r.Context(), testSession)))
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

type stubProfiles struct {
	profile *models.Profile
	err     error
}

func (s stubProfiles) Bootstrap(context.Context, *models.Session) (*models.Profile, error) {
	return s.profile, s.err
}

type stubLinks struct{}

func (stubLinks) ShareLink(userID string) string { return "http://localhost:8080/shared/" + userID }

type stubFlow struct {
	conn     *models.CalendarConnection
	connErr  error
	callback services.CallbackResult
	saveErr  error
	saved    [][]string
}

func (s *stubFlow) BeginConsent(string) (string, error) {
	return "https://accounts.google.com/o/oauth2/v2/auth?response_type=token", nil
}

func (s *stubFlow) HandleCallback(context.Context, string, string) services.CallbackResult {
	return s.callback
}

func (s *stubFlow) SaveSelection(_ context.Context, _ string, ids []string) (*services.SelectionResult, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation(services.MsgSelectionNone)
	}
	s.saved = append(s.saved, ids)
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	return &services.SelectionResult{Selected: ids, Message: services.MsgSelectionSave, Redirect: "/dashboard", RedirectDelayMS: 1500}, nil
}

func (s *stubFlow) Connection(context.Context, string) (*models.CalendarConnection, error) {
	return s.conn, s.connErr
}

func TestDashboardProfileFailure(t *testing.T) {
	h := NewDashboardHandler(
		stubProfiles{err: apperr.Persistence("failed to create profile", context.DeadlineExceeded)},
		&stubFlow{},
		stubLinks{},
	)

	rec := httptest.NewRecorder()
	withSession(h.Dashboard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("failure must not redirect, got %q", loc)
	}
	var view DashboardView
	decodeBody(t, rec, &view)
	if view.Message == nil || view.Message.Text != "Error loading profile" || view.Message.Type != "error" {
		t.Errorf("unexpected message %+v", view.Message)
	}
}

func TestDashboard(t *testing.T) {
	profile := &models.Profile{ID: "u1", Email: "ann@example.com", FullName: "ann"}
	h := NewDashboardHandler(stubProfiles{profile: profile}, &stubFlow{conn: &models.CalendarConnection{UserID: "u1", Connected: true}}, stubLinks{})

	rec := httptest.NewRecorder()
	withSession(h.Dashboard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view DashboardView
	decodeBody(t, rec, &view)
	if !view.Connected || view.ShareLink != "http://localhost:8080/shared/u1" || view.Profile.FullName != "ann" {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestDashboardConnectionErrorIsLoggedOnly(t *testing.T) {
	profile := &models.Profile{ID: "u1", FullName: "ann"}
	h := NewDashboardHandler(stubProfiles{profile: profile}, &stubFlow{connErr: apperr.Persistence("db", context.Canceled)}, stubLinks{})

	rec := httptest.NewRecorder()
	withSession(h.Dashboard).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("connection lookup failure must not fail the view, got %d", rec.Code)
	}
}

func TestCallbackStatus(t *testing.T) {
	tests := []struct {
		name   string
		result services.CallbackResult
		status int
	}{
		{"connected", services.CallbackResult{State: services.StateConnected}, http.StatusOK},
		{"idle", services.CallbackResult{State: services.StateIdle}, http.StatusOK},
		{"remote failure", services.CallbackResult{State: services.StateFailed, Err: &apperr.RemoteError{Op: "list calendars", StatusCode: 401}}, http.StatusBadGateway},
		{"persistence failure", services.CallbackResult{State: services.StateFailed, Err: apperr.Persistence("upsert", context.Canceled)}, http.StatusInternalServerError},
		{"bad state", services.CallbackResult{State: services.StateFailed, Err: apperr.Auth("invalid state parameter")}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.result.ClearFragment = true
			tt.result.ReplaceURL = services.ConnectPath
			h := NewConnectHandler(&stubFlow{callback: tt.result})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/calendar/callback", strings.NewReader(`{"fragment":"#access_token=tok123"}`))
			rec := httptest.NewRecorder()
			withSession(h.Callback).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			var body struct {
				ClearFragment bool   `json:"clear_fragment"`
				ReplaceURL    string `json:"replace_url"`
			}
			decodeBody(t, rec, &body)
			if !body.ClearFragment || body.ReplaceURL != "/connect-calendar" {
				t.Errorf("response must ask to clear the fragment, got %+v", body)
			}
		})
	}
}

func TestSaveSelectionHandler(t *testing.T) {
	flow := &stubFlow{}
	h := NewConnectHandler(flow)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/calendar/selection", strings.NewReader(`{"calendar_ids":[]}`))
	rec := httptest.NewRecorder()
	withSession(h.SaveSelection).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty selection: expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/calendar/selection", strings.NewReader(`{"calendar_ids":["work"]}`))
	rec = httptest.NewRecorder()
	withSession(h.SaveSelection).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res services.SelectionResult
	decodeBody(t, rec, &res)
	if res.Redirect != "/dashboard" || res.RedirectDelayMS != 1500 {
		t.Errorf("unexpected result %+v", res)
	}

	flow.saveErr = apperr.Persistence("failed to update selected calendars", context.Canceled)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/calendar/selection", strings.NewReader(`{"calendar_ids":["work"]}`))
	rec = httptest.NewRecorder()
	withSession(h.SaveSelection).ServeHTTP(rec, req)
	var errBody ErrorResponse
	decodeBody(t, rec, &errBody)
	if rec.Code != http.StatusInternalServerError || !strings.HasPrefix(errBody.Error, "Failed to save calendar preferences: ") {
		t.Errorf("unexpected failure response %d %q", rec.Code, errBody.Error)
	}
}

func TestConnectView(t *testing.T) {
	h := NewConnectHandler(&stubFlow{connErr: apperr.ErrNotFound})

	rec := httptest.NewRecorder()
	withSession(h.View).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/connect-calendar", nil))

	var view ConnectView
	decodeBody(t, rec, &view)
	if view.State != services.StateIdle || view.Connected || view.Calendars == nil {
		t.Errorf("unexpected view %+v", view)
	}
}

type stubShared struct {
	err       error
	weekCalls int
}

func (s *stubShared) Week(value string) (schedule.Week, error) {
	s.weekCalls++
	return schedule.ParseWeek(value, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), time.Sunday, time.UTC)
}

func (s *stubShared) Load(_ context.Context, _, partnerID string, week schedule.Week) (*services.SharedCalendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	ev := models.Event{ID: "e1", Title: "You: Standup", Start: week.Start.Add(33 * time.Hour), Duration: 30, Owner: models.OwnerSelf}
	return &services.SharedCalendar{
		PartnerName: "sam",
		WeekView:    schedule.BuildView(week, week.Start, []models.Event{ev}, nil),
	}, nil
}

func sharedRouter(shared SharedLoader) http.Handler {
	h := NewSharedHandler(shared)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), testSession)))
		})
	})
	r.Get("/shared/{partnerId}", h.Shared)
	r.Get("/shared/{partnerId}/week.ics", h.ICS)
	return r
}

func TestSharedHandler(t *testing.T) {
	shared := &stubShared{}
	r := sharedRouter(shared)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared/u2?week=2026-10-20", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cal services.SharedCalendar
	decodeBody(t, rec, &cal)
	if cal.PartnerName != "sam" || cal.WeekStart != "2026-10-18" || len(cal.Days) != 7 {
		t.Errorf("unexpected calendar %+v", cal)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared/u2?week=tomorrow", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed week: expected 400, got %d", rec.Code)
	}

	shared.err = apperr.ErrForbidden
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared/u2", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestSharedICS(t *testing.T) {
	shared := &stubShared{}
	r := sharedRouter(shared)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shared/u2/week.ics?week=2026-10-11", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "BEGIN:VEVENT") {
		t.Error("expected an event in the export")
	}
	if shared.weekCalls != 1 {
		t.Errorf("week should be parsed once per export, got %d", shared.weekCalls)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "week-2026-10-11.ics") {
		t.Errorf("unexpected disposition %q", cd)
	}
}

type stubPairs struct{}

func (stubPairs) GetPairByUserID(context.Context, string) (*models.Pair, error) {
	return nil, apperr.ErrNotFound
}

func TestWebSocketWeekNavigation(t *testing.T) {
	shared := &stubShared{}
	h := NewWebSocketHandler(services.NewWSHub(), shared, stubPairs{})
	srv := httptest.NewServer(withSession(h.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() services.WSMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg services.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != services.MsgTypePairStatus {
		t.Fatalf("expected pair_status first, got %s", msg.Type)
	}

	conn.WriteJSON(map[string]any{"type": "view_week", "partner_id": "u2", "week": "2026-10-15"})
	first := read()
	if first.Type != services.MsgTypeWeek || first.Generation != 1 {
		t.Fatalf("expected week generation 1, got %+v", first)
	}

	conn.WriteJSON(map[string]any{"type": "shift_week", "delta": 1})
	second := read()
	if second.Type != services.MsgTypeWeek || second.Generation != 2 {
		t.Fatalf("expected week generation 2, got %+v", second)
	}
	data, _ := second.Data.(map[string]any)
	if data["week_start"] != "2026-10-18" {
		t.Errorf("shifted week should start 2026-10-18, got %v", data["week_start"])
	}

	conn.WriteJSON(map[string]any{"type": "bogus"})
	if msg := read(); msg.Type != services.MsgTypeError {
		t.Errorf("expected error for unknown type, got %s", msg.Type)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth uses caller status", apperr.Auth("Invalid login credentials"), http.StatusUnauthorized},
		{"validation", apperr.Validation(services.MsgSelectionNone), http.StatusBadRequest},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden},
		{"not found", apperr.ErrNotFound, http.StatusNotFound},
		{"internal", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err, http.StatusUnauthorized); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
