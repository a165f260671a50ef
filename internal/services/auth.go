package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"
	"calendar-share/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const confirmTokenTTL = 24 * time.Hour

// Session change kinds
const (
	SessionSignedIn  = "signed_in"
	SessionSignedOut = "signed_out"
)

// SessionEvent describes a change of a user's session
type SessionEvent struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	Session *models.Session `json:"session,omitempty"`
}

// SessionListener is called after every sign in and sign out
type SessionListener func(SessionEvent)

// AuthOptions configures a SessionStore
type AuthOptions struct {
	Secret                   string
	SessionTTL               time.Duration
	RequireEmailConfirmation bool
	MinPasswordLength        int
}

// SignUpResult is the outcome of a sign up. Session is nil while the email
// still needs confirming.
type SignUpResult struct {
	User         *models.User
	Session      *models.Session
	ConfirmToken string
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type purposeClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionStore handles accounts and the sessions issued for them
type SessionStore struct {
	users    UserStore
	sessions SessionRecordStore
	opts     AuthOptions
	now      func() time.Time

	mu        sync.Mutex
	listeners map[int]SessionListener
	nextID    int
}

// NewSessionStore creates a new session store
func NewSessionStore(users UserStore, sessions SessionRecordStore, opts AuthOptions) *SessionStore {
	return &SessionStore{
		users:     users,
		sessions:  sessions,
		opts:      opts,
		now:       time.Now,
		listeners: make(map[int]SessionListener),
	}
}

// SignUp registers a new account
func (s *SessionStore) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < s.opts.MinPasswordLength {
		return nil, apperr.Auth("Password should be at least %d characters", s.opts.MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		FullNameHint: LocalPart(email),
		CreatedAt:    now,
	}
	if !s.opts.RequireEmailConfirmation {
		user.EmailConfirmedAt = &now
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperr.Auth("User already registered")
		}
		return nil, err
	}

	result := &SignUpResult{User: user}
	if s.opts.RequireEmailConfirmation {
		token, err := s.sign(purposeClaims{
			Purpose: "confirm",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   user.ID,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(confirmTokenTTL)),
			},
		})
		if err != nil {
			return nil, err
		}
		result.ConfirmToken = token
		log.Info().Str("user_id", user.ID).Str("confirm_token", token).Msg("Confirmation required")
		return result, nil
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	result.Session = session
	return result, nil
}

// SignIn verifies credentials and issues a session
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Auth("Invalid login credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Auth("Invalid login credentials")
	}
	if !user.Confirmed() {
		return nil, apperr.Auth("Email not confirmed")
	}

	return s.issue(ctx, user)
}

const msgBadConfirmLink = "Invalid or expired confirmation link"

// Confirm marks the account behind a confirmation token as confirmed
func (s *SessionStore) Confirm(ctx context.Context, token string) error {
	var claims purposeClaims
	if err := s.parse(token, &claims); err != nil || claims.Purpose != "confirm" {
		return apperr.Auth(msgBadConfirmLink)
	}
	if err := s.users.MarkConfirmed(ctx, claims.Subject, s.now()); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Auth(msgBadConfirmLink)
		}
		return err
	}
	return nil
}

// Validate returns the session a token represents. Expired, revoked and
// malformed tokens are AuthErrors.
func (s *SessionStore) Validate(ctx context.Context, token string) (*models.Session, error) {
	var claims sessionClaims
	if err := s.parse(token, &claims); err != nil {
		return nil, apperr.Auth("Invalid session")
	}

	active, err := s.sessions.IsActive(ctx, claims.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperr.Auth("Session expired")
	}

	return &models.Session{
		ID:        claims.ID,
		Token:     token,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Current returns the session for token, or nil when there is none
func (s *SessionStore) Current(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.Validate(ctx, token)
	if err != nil {
		if apperr.IsAuth(err) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// SignOut revokes the session behind token. Signing out twice is not an error.
func (s *SessionStore) SignOut(ctx context.Context, token string) error {
	session, err := s.Current(ctx, token)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	if err := s.sessions.Revoke(ctx, session.ID, s.now()); err != nil {
		return err
	}

	log.Info().Str("user_id", session.UserID).Msg("User signed out")
	s.notify(SessionEvent{Type: SessionSignedOut, UserID: session.UserID})
	return nil
}

// Subscribe registers a listener for session changes. The returned function
// removes it and may be called more than once.
func (s *SessionStore) Subscribe(listener SessionListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *SessionStore) notify(event SessionEvent) {
	s.mu.Lock()
	listeners := make([]SessionListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

func (s *SessionStore) issue(ctx context.Context, user *models.User) (*models.Session, error) {
	now := s.now()
	record := &models.SessionRecord{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.SessionTTL),
	}

	token, err := s.sign(sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        record.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, record); err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        record.ID,
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: record.ExpiresAt,
	}

	log.Info().Str("user_id", user.ID).Msg("User signed in")
	s.notify(SessionEvent{Type: SessionSignedIn, UserID: user.ID, Session: session})
	return session, nil
}

func (s *SessionStore) sign(claims jwt.Claims) (string, error) {
	return signToken(s.opts.Secret, claims)
}

func (s *SessionStore) parse(token string, claims jwt.Claims) error {
	return parseToken(s.opts.Secret, token, claims, s.now)
}

func signToken(secret string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func parseToken(secret, tokenString string, claims jwt.Claims, now func() time.Time) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Auth("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || LocalPart(email) == "" {
		return "", apperr.Auth("Unable to validate email address: invalid format")
	}
	return email, nil
}

// LocalPart returns the part of an email address before the '@'
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
