package cmd

import (
	"net/http"

	"calendar-share/internal/handlers"
	"calendar-share/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// routes bundles everything the router dispatches to
type routes struct {
	sessions  middleware.SessionResolver
	auth      *handlers.AuthHandler
	dashboard *handlers.DashboardHandler
	connect   *handlers.ConnectHandler
	pairs     *handlers.PairHandler
	shared    *handlers.SharedHandler
	ws        *handlers.WebSocketHandler
}

const wsPath = "/ws"

func newRouter(h routes) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.QueryToken(wsPath))
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Views
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(h.sessions))
		r.Use(middleware.Guard)
		r.Get(middleware.RootPath, h.auth.Login)
		r.Get(middleware.LoginPath, h.auth.Login)
		r.Get(middleware.DashboardPath, h.dashboard.Dashboard)
		r.Get(middleware.ConnectPath, h.connect.View)
		r.Get(middleware.SharedPrefix+"{partnerId}", h.shared.Shared)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.LoadSession(h.sessions))
			r.Post("/signup", h.auth.SignUp)
			r.Post("/signin", h.auth.SignIn)
			r.Post("/signout", h.auth.SignOut)
			r.Get("/session", h.auth.Session)
			r.Get("/confirm", h.auth.Confirm)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(h.sessions))
			r.Post("/calendar/connect", h.connect.Begin)
			r.Post("/calendar/callback", h.connect.Callback)
			r.Put("/calendar/selection", h.connect.SaveSelection)
			r.Get("/calendar/connection", h.connect.Connection)
			r.Post("/pairs/invite", h.pairs.Invite)
			r.Get("/pairs/invites", h.pairs.ListInvites)
			r.Post("/pairs/accept", h.pairs.AcceptInvite)
			r.Post("/pairs/decline", h.pairs.DeclineInvite)
			r.Get("/pairs/me", h.pairs.GetMyPair)
			r.Delete("/pairs/{pair_id}", h.pairs.DeletePair)
			r.Get("/shared/{partnerId}", h.shared.Shared)
			r.Get("/shared/{partnerId}/week.ics", h.shared.ICS)
		})
	})

	// WebSocket route
	r.With(middleware.AuthMiddleware(h.sessions)).Get(wsPath, h.ws.HandleWebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
