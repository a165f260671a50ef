package models

import "time"

// User represents an account that can sign in
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FullNameHint     string     `json:"full_name_hint,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Confirmed reports whether the user confirmed their email address
func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}

// Session is the authenticated identity of the current browser user
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRecord is the persisted form of a session, used for revocation
type SessionRecord struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Profile is the public profile of a user
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Calendar is one entry of a Google account's calendar list
type Calendar struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Description     string `json:"description,omitempty"`
	BackgroundColor string `json:"backgroundColor"`
}

// CalendarConnection links a user to their Google Calendar account
type CalendarConnection struct {
	UserID            string     `json:"user_id"`
	Connected         bool       `json:"google_calendar_connected"`
	AccessToken       string     `json:"-"`
	Calendars         []Calendar `json:"calendars"`
	SelectedCalendars []string   `json:"selected_calendars"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasToken reports whether events can be requested for this connection
func (c *CalendarConnection) HasToken() bool {
	return c != nil && c.AccessToken != ""
}

// Pair represents two users who agreed to share calendars
type Pair struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PartnerOf returns the other member of the pair
func (p *Pair) PartnerOf(userID string) string {
	if p.UserAID == userID {
		return p.UserBID
	}
	return p.UserAID
}

// Has reports whether userID is a member of the pair
func (p *Pair) Has(userID string) bool {
	return p.UserAID == userID || p.UserBID == userID
}

// Invite is a pending request to pair, waiting for the invitee to accept
type Invite struct {
	ID           string    `json:"id"`
	InviterID    string    `json:"inviter_id"`
	InviteeEmail string    `json:"invitee_email"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event owners
const (
	OwnerSelf    = "You"
	OwnerPartner = "Partner"
)

// Event is a single calendar entry shown in the shared calendar
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	Duration int       `json:"duration"` // minutes
	Owner    string    `json:"owner"`
}

// End returns the time the event finishes
func (e Event) End() time.Time {
	return e.Start.Add(time.Duration(e.Duration) * time.Minute)
}
