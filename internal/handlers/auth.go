package handlers

import (
	"context"
	"net/http"
	"time"

	"calendar-share/internal/middleware"
	"calendar-share/internal/models"
	"calendar-share/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthService is the account and session API the handlers need
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*services.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	Confirm(ctx context.Context, token string) error
}

// AuthHandler handles sign up, sign in and session requests
type AuthHandler struct {
	auth         AuthService
	minPassword  int
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService, minPassword int, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, minPassword: minPassword, secureCookie: secureCookie}
}

// CredentialsRequest is the body of sign up and sign in
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by the auth endpoints
type AuthResponse struct {
	Session  *models.Session `json:"session"`
	Message  *Message        `json:"message,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
}

// LoginView is the view model of the login screen
type LoginView struct {
	View              string `json:"view"`
	MinPasswordLength int    `json:"min_password_length"`
}

// Login handles GET /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, LoginView{View: "login", MinPasswordLength: h.minPassword})
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign up")
		respondServiceError(w, err, http.StatusBadRequest, "Failed to create account")
		return
	}

	if res.Session == nil {
		respondJSON(w, http.StatusCreated, AuthResponse{
			Message: successMessage("Account created! Check your email to confirm."),
		})
		return
	}

	h.setSessionCookie(w, res.Session)
	respondJSON(w, http.StatusCreated, AuthResponse{
		Session:  res.Session,
		Message:  successMessage("Account created!"),
		Redirect: middleware.DashboardPath,
	})
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Info().Err(err).Msg("Sign in rejected")
		respondServiceError(w, err, http.StatusUnauthorized, "Failed to sign in")
		return
	}

	h.setSessionCookie(w, session)
	respondJSON(w, http.StatusOK, AuthResponse{Session: session, Redirect: middleware.DashboardPath})
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), middleware.TokenFromRequest(r)); err != nil {
		log.Error().Err(err).Msg("Failed to sign out")
		respondServiceError(w, err, http.StatusUnauthorized, "Failed to sign out")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, AuthResponse{Redirect: middleware.LoginPath})
}

// Session handles GET /api/v1/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, AuthResponse{Session: middleware.GetSession(r.Context())})
}

// Confirm handles GET /api/v1/auth/confirm
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Confirm(r.Context(), r.URL.Query().Get("token")); err != nil {
		respondServiceError(w, err, http.StatusBadRequest, "Failed to confirm account")
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{
		Message:  successMessage("Email confirmed! You can sign in now."),
		Redirect: middleware.LoginPath,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
