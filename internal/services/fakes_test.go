package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"
	"calendar-share/internal/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	email map[string]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}, email: map[string]string{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.email[u.Email]; ok {
		return repository.ErrEmailTaken
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.email[u.Email] = u.ID
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	id, ok := f.email[email]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) MarkConfirmed(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", apperr.ErrNotFound)
	}
	if u.EmailConfirmedAt == nil {
		u.EmailConfirmedAt = &at
	}
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	records map[string]*models.SessionRecord
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[string]*models.SessionRecord{}}
}

func (f *fakeSessions) Create(_ context.Context, s *models.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.records[s.ID] = &cp
	return nil
}

func (f *fakeSessions) IsActive(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return ok && r.RevokedAt == nil && now.Before(r.ExpiresAt), nil
}

func (f *fakeSessions) Revoke(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		r.RevokedAt = &at
	}
	return nil
}

type fakeProfiles struct {
	mu        sync.Mutex
	rows      map[string]*models.Profile
	createErr error
	creates   int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[string]*models.Profile{}}
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", apperr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Create mirrors INSERT ... ON CONFLICT (id) DO NOTHING followed by a read
func (f *fakeProfiles) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.rows[p.ID]; !ok {
		cp := *p
		f.rows[p.ID] = &cp
	}
	cp := *f.rows[p.ID]
	return &cp, nil
}

type fakeConnections struct {
	mu         sync.Mutex
	rows       map[string]*models.CalendarConnection
	upsertErr  error
	updateErr  error
	getErr     error
	upserts    int
	updates    int
	lastUpdate []string
}

func newFakeConnections() *fakeConnections {
	return &fakeConnections{rows: map[string]*models.CalendarConnection{}}
}

func (f *fakeConnections) GetByUserID(_ context.Context, userID string) (*models.CalendarConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.rows[userID]
	if !ok {
		return nil, fmt.Errorf("calendar connection not found: %w", apperr.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnections) Upsert(_ context.Context, c *models.CalendarConnection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *c
	if prev, ok := f.rows[c.UserID]; ok {
		cp.SelectedCalendars = prev.SelectedCalendars
	}
	f.rows[c.UserID] = &cp
	return nil
}

func (f *fakeConnections) UpdateSelected(_ context.Context, userID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.lastUpdate = ids
	if f.updateErr != nil {
		return f.updateErr
	}
	c, ok := f.rows[userID]
	if !ok {
		return apperr.Persistence("failed to update selected calendars", apperr.ErrNotFound)
	}
	c.SelectedCalendars = slices.Clone(ids)
	return nil
}

type fakePairs struct {
	mu   sync.Mutex
	rows map[string]*models.Pair
}

func newFakePairs() *fakePairs {
	return &fakePairs{rows: map[string]*models.Pair{}}
}

func (f *fakePairs) Create(_ context.Context, p *models.Pair) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.Has(p.UserAID) || existing.Has(p.UserBID) {
			return repository.ErrAlreadyPaired
		}
	}
	cp := *p
	f.rows[p.ID] = &cp
	return nil
}

func (f *fakePairs) GetByID(_ context.Context, id string) (*models.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("pair not found: %w", apperr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePairs) GetByUserID(_ context.Context, userID string) (*models.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.Has(userID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("pair not found: %w", apperr.ErrNotFound)
}

func (f *fakePairs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return fmt.Errorf("pair not found: %w", apperr.ErrNotFound)
	}
	delete(f.rows, id)
	return nil
}

func (f *fakePairs) UserHasPair(ctx context.Context, userID string) (bool, error) {
	_, err := f.GetByUserID(ctx, userID)
	return err == nil, nil
}

func (f *fakePairs) ArePaired(ctx context.Context, userID, otherID string) (bool, error) {
	p, err := f.GetByUserID(ctx, userID)
	return err == nil && p.Has(otherID), nil
}

type fakeInvites struct {
	mu   sync.Mutex
	rows map[string]*models.Invite
}

func newFakeInvites() *fakeInvites {
	return &fakeInvites{rows: map[string]*models.Invite{}}
}

// Create mirrors the upsert on (inviter_id, invitee_email)
func (f *fakeInvites) Create(_ context.Context, inv *models.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.InviterID == inv.InviterID && existing.InviteeEmail == inv.InviteeEmail {
			existing.CreatedAt = inv.CreatedAt
			inv.ID = existing.ID
			return nil
		}
	}
	cp := *inv
	f.rows[inv.ID] = &cp
	return nil
}

func (f *fakeInvites) GetByID(_ context.Context, id string) (*models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("invite not found: %w", apperr.ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvites) ListForEmail(_ context.Context, email string) ([]models.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invite
	for _, inv := range f.rows {
		if inv.InviteeEmail == email {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvites) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return fmt.Errorf("invite not found: %w", apperr.ErrNotFound)
	}
	delete(f.rows, id)
	return nil
}

type fakeLister struct {
	calendars []models.Calendar
	err       error
	tokens    []string
}

func (f *fakeLister) ListCalendars(_ context.Context, token string) ([]models.Calendar, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.calendars, nil
}

type fetchCall struct {
	userID string
	from   time.Time
	to     time.Time
}

type fakeSource struct {
	mu    sync.Mutex
	calls []fetchCall
	errs  map[string]error
}

func (f *fakeSource) Events(_ context.Context, conn *models.CalendarConnection, from, to time.Time, owner string) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{userID: conn.UserID, from: from, to: to})
	if err := f.errs[conn.UserID]; err != nil {
		return nil, err
	}
	return []models.Event{{
		ID:       conn.UserID + "-1",
		Title:    owner + ": Standup",
		Start:    from.Add(33 * time.Hour),
		Duration: 30,
		Owner:    owner,
	}}, nil
}

type sentNote struct {
	kind   string
	target string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNote
}

func (f *fakeNotifier) record(kind, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNote{kind, target})
	return nil
}

func (f *fakeNotifier) NotifyInvite(inviteeID string, _ *models.Invite) error {
	return f.record(MsgTypePairInvite, inviteeID)
}

func (f *fakeNotifier) NotifyPairCreated(partnerID string, _ *models.Pair) error {
	return f.record(MsgTypePairCreated, partnerID)
}

func (f *fakeNotifier) NotifyPairDeleted(partnerID string) error {
	return f.record(MsgTypePairDeleted, partnerID)
}

func (f *fakeNotifier) NotifyConnectionUpdated(partnerID, _ string) error {
	return f.record(MsgTypeConnectionUpdated, partnerID)
}

var errBoom = errors.New("boom")
