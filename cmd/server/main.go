package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"notevault-server/internal/authn"
	"notevault-server/internal/config"
	"notevault-server/internal/handler"
	"notevault-server/internal/middleware"
	"notevault-server/internal/ratelimit"
	"notevault-server/internal/repository"
	"notevault-server/internal/service"
	"notevault-server/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(logger)

	db, err := repository.Open(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(context.Background(), db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ownerRepo := repository.NewOwnerRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	handshakeRepo := repository.NewHandshakeRepository(db)

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go wsManager.Run()

	verifier := authn.AcceptAll{}

	sessionService := service.NewSessionService(cfg.Session.Secret, cfg.Session.TTL, credentialRepo)
	vaultService := service.NewVaultService(ownerRepo, credentialRepo, sessionService, verifier, cfg.Session.ChallengeTTL)
	deviceService := service.NewDeviceService(credentialRepo)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, credentialRepo, sessionService, verifier, cfg.Enroll.TokenTTL)
	syncService := service.NewSyncService(noteRepo, conflictRepo, wsManager)
	handshakeService := service.NewHandshakeService(handshakeRepo, service.HandshakeWindows{
		Join:    cfg.Handshake.JoinWindow,
		Confirm: cfg.Handshake.ConfirmWindow,
		Fetch:   cfg.Handshake.FetchWindow,
	})

	secureCookie := cfg.IsProduction()

	vaultHandler := handler.NewVaultHandler(vaultService, sessionService, secureCookie)
	noteHandler := handler.NewNoteHandler(syncService, deviceService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService, sessionService, secureCookie)
	handshakeHandler := handler.NewHandshakeHandler(handshakeService)
	wsHandler := handler.NewWebSocketHandler(wsManager, sessionService, cfg.Server.AllowedOrigin)

	r := mux.NewRouter()
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.OriginMiddleware(cfg.Server.AllowedOrigin))

	generalLimit := rateLimiter(cfg)
	window := time.Minute

	limited := func(limit int, keyFn middleware.KeyFunc) mux.MiddlewareFunc {
		return mux.MiddlewareFunc(middleware.RateLimitMiddleware(generalLimit, limit, window, keyFn))
	}

	// Unauthenticated surface: setup, login, joiner side of pairing. These
	// carry the tighter login limit, keyed by client address.
	open := r.PathPrefix("").Subrouter()
	if cfg.RateLimit.Enabled {
		open.Use(limited(cfg.RateLimit.LoginPerMinute, middleware.KeyByIP("open")))
	}
	open.HandleFunc("/vault/init", vaultHandler.Init).Methods("POST")
	open.HandleFunc("/login/challenge", vaultHandler.Challenge).Methods("POST")
	open.HandleFunc("/login/verify", vaultHandler.VerifyLogin).Methods("POST")
	open.HandleFunc("/enroll/claim", enrollmentHandler.Claim).Methods("POST")
	open.HandleFunc("/handshake/join", handshakeHandler.Join).Methods("POST")
	open.HandleFunc("/handshake/status/bob", handshakeHandler.JoinerStatus).Methods("POST")
	open.HandleFunc("/handshake/cancel", handshakeHandler.Cancel).Methods("POST")

	// The limiter sits in front of auth so unauthenticated hammering never
	// reaches token verification; the session key falls back to client
	// address for requests without a valid cookie.
	protected := r.PathPrefix("").Subrouter()
	if cfg.RateLimit.Enabled {
		protected.Use(limited(cfg.RateLimit.RequestsPerMinute, middleware.KeyBySession("api")))
	}
	protected.Use(middleware.AuthMiddleware(sessionService, secureCookie))
	protected.HandleFunc("/logout", vaultHandler.Logout).Methods("POST")
	protected.HandleFunc("/vault/key", vaultHandler.WrappedKey).Methods("GET")

	protected.HandleFunc("/notes", noteHandler.ListChanges).Methods("GET")
	protected.HandleFunc("/notes", noteHandler.Push).Methods("POST")
	protected.HandleFunc("/notes/{id}/conflicts", noteHandler.ListConflicts).Methods("GET")
	protected.HandleFunc("/notes/{id}/conflicts", noteHandler.ClearConflicts).Methods("DELETE")

	protected.HandleFunc("/handshake/init", handshakeHandler.Init).Methods("POST")
	protected.HandleFunc("/handshake/status/alice", handshakeHandler.InitiatorStatus).Methods("POST")
	protected.HandleFunc("/handshake/confirm", handshakeHandler.Confirm).Methods("POST")

	protected.HandleFunc("/devices", deviceHandler.List).Methods("GET")
	protected.HandleFunc("/device/{id}", deviceHandler.Revoke).Methods("DELETE")

	protected.HandleFunc("/enroll/token", enrollmentHandler.CreateToken).Methods("POST")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", vaultHandler.Health).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("starting note vault server", "addr", addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// rateLimiter composes the remote authoritative counter with the in-process
// fallback. Without a counter URL the local counter stands alone.
func rateLimiter(cfg *config.Config) ratelimit.Strategy {
	local := ratelimit.NewLocalCounter()
	if cfg.RateLimit.CounterURL == "" {
		return local
	}

	remote := ratelimit.NewRemoteCounter(cfg.RateLimit.CounterURL)
	return ratelimit.NewFailover(remote, local, slog.Default())
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.IsProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
