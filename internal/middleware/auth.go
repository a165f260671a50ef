package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"calendar-share/internal/models"

	"github.com/rs/zerolog/log"
)

// SessionCookie is the cookie that carries the session token for browsers
const SessionCookie = "session"

type contextKey string

const sessionKey contextKey = "session"

// SessionResolver looks up the session behind a token. A nil session
// without error means there is none.
type SessionResolver interface {
	Current(ctx context.Context, token string) (*models.Session, error)
}

// TokenFromRequest extracts the session token from the Authorization
// header or the session cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// QueryToken moves the token query parameter of wsPath requests into a
// Bearer Authorization header, since browsers cannot set headers on a
// WebSocket handshake, and drops it from the URL so it is never logged.
// A header or session cookie already on the request takes precedence.
// Other paths are left untouched and their token parameter is never read
// as a session.
func QueryToken(wsPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if r.URL.Path != wsPath || !query.Has("token") {
				next.ServeHTTP(w, r)
				return
			}

			token := query.Get("token")
			query.Del("token")
			r = r.Clone(r.Context())
			r.URL.RawQuery = query.Encode()
			r.RequestURI = r.URL.RequestURI()

			if token != "" && r.Header.Get("Authorization") == "" && TokenFromRequest(r) == "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadSession resolves the session of the request, if any, and stores it
// in the context. Requests without a session pass through.
func LoadSession(store SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := store.Current(r.Context(), token)
			if err != nil {
				log.Error().Err(err).Msg("Failed to resolve session")
				respondError(w, "Failed to resolve session", http.StatusInternalServerError)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware rejects requests without a valid session
func AuthMiddleware(store SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetSession(r.Context()) == nil {
				respondError(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionKey).(*models.Session)
	return session
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	if session := GetSession(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// WithSession returns a copy of ctx carrying session
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
