package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"calendar-share/internal/config"
	"calendar-share/internal/crypto"
	"calendar-share/internal/google"
	"calendar-share/internal/handlers"
	"calendar-share/internal/repository"
	"calendar-share/internal/schedule"
	"calendar-share/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}
	if cfg.Google.ClientID == "" {
		log.Warn().Msg("google.client_id is empty, calendar connection will fail")
	}

	// Apply migrations before opening the pool
	if err := repository.RunMigrations(cfg.Database.MigrateURL()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	sealer, err := crypto.NewSealer(cfg.Crypto.TokenKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token encryption")
	}

	loc := cfg.Calendar.Location()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	connectionRepo := repository.NewConnectionRepository(db, sealer)
	pairRepo := repository.NewPairRepository(db)
	inviteRepo := repository.NewInviteRepository(db)

	googleClient := google.NewClient(cfg.Google, loc)
	var events services.EventSource = schedule.MockSource{Loc: loc}
	if cfg.Google.EventSource == "google" {
		events = googleClient
	}
	log.Info().Str("event_source", cfg.Google.EventSource).Str("timezone", loc.String()).Msg("Calendar configured")

	// Initialize services
	wsHub := services.NewWSHub()
	sessionStore := services.NewSessionStore(userRepo, sessionRepo, services.AuthOptions{
		Secret:                   cfg.JWT.Secret,
		SessionTTL:               cfg.JWT.SessionTTL(),
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
		MinPasswordLength:        cfg.Auth.MinPasswordLength,
	})
	unsubscribe := sessionStore.Subscribe(wsHub.NotifySession)
	defer unsubscribe()

	profileService := services.NewProfileService(profileRepo)
	pairService := services.NewPairService(pairRepo, inviteRepo, userRepo, wsHub, cfg.Server.BaseURL)
	connectService := services.NewConnectService(
		connectionRepo,
		googleClient,
		pairRepo,
		wsHub,
		cfg.Google.ClientID,
		cfg.Server.BaseURL,
		cfg.Google.Scopes,
		cfg.JWT.Secret,
	)
	sharedService := services.NewSharedService(profileRepo, connectionRepo, pairRepo, events, services.SharedOptions{
		Location:    loc,
		WeekStart:   schedule.ParseWeekStart(cfg.Calendar.WeekStart),
		RequirePair: cfg.Sharing.RequirePair,
	})

	// Initialize handlers
	secureCookie := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	router := newRouter(routes{
		sessions:  sessionStore,
		auth:      handlers.NewAuthHandler(sessionStore, cfg.Auth.MinPasswordLength, secureCookie),
		dashboard: handlers.NewDashboardHandler(profileService, connectService, pairService),
		connect:   handlers.NewConnectHandler(connectService),
		pairs:     handlers.NewPairHandler(pairService),
		shared:    handlers.NewSharedHandler(sharedService),
		ws:        handlers.NewWebSocketHandler(wsHub, sharedService, pairService),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("base_url", cfg.Server.BaseURL).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not closed by Shutdown
	wsHub.CloseAll()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
