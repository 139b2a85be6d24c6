package main

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Returning instead of exiting lets every defer release its resource.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) && !config.BadgerInMemory {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, UserMapper)
	}

	// 3. Identity
	// A fresh key per process: tokens of a previous run are rejected
	secret, err := auth.NewSecret()
	if err != nil {
		return exitRuntime, err
	}
	tokens := auth.NewTokenService(secret, config.AuthTokenDuration)
	userRepository := repositories.NewUserRepository(db, logger)
	directory := services.NewUserDirectory(userRepository)
	authService := services.NewAuthService(logger, userRepository, tokens, config.GuestTTL)

	// 4. Realtime core
	registry := runtime.NewRegistry(logger, tokens, directory)
	fanout := workers.NewEventFanout(logger, registry, config.BufferSize, config.SinkTimeout)

	var opts []runtime.EngineOption
	if config.ModerationEnabled {
		moderator, err := buildModerator(logger, charReplacement)
		if err != nil {
			return exitRuntime, err
		}
		opts = append(opts, runtime.WithModerator(moderator))
	}
	engine := runtime.NewEngine(logger, registry, directory,
		chat.NewValidator(config.MaxContentLength), fanout, opts...)

	// 5. Supervision
	health := observability.NewHealthStore()
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		fanout,
		workers.NewValueLogGC(logger, db, config.GCInterval),
		workers.NewHealthMonitor(logger, registry, health, config.HealthInterval),
	)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. HTTP Server Setup
	realtime := ws.NewHandler(logger, registry, engine,
		config.HandshakeTimeout, config.ConnectionBufferSize, config.OriginPatterns())
	api := httpapi.NewServer(logger, authService, tokens, registry, health, realtime, config.Origins())
	server := &http.Server{
		Addr:              config.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Websocket handlers see the shutdown through their request context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful Shutdown
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildModerator(logger *slog.Logger, charReplacement rune) (contract.IModerator, error) {
	dictionary, err := moderation.LoadDictionary()
	if err != nil {
		return nil, fmt.Errorf("censored words loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(dictionary.Words, charReplacement, logger)
	if err != nil {
		return nil, fmt.Errorf("moderator init failed: %w", err)
	}
	logger.Info("Moderation enabled", "words", len(dictionary.Words), "languages", dictionary.Languages)
	return moderator, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if config.BadgerInMemory {
		options = badger.DefaultOptions("").WithInMemory(true)
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}

// UserMapper renders user records in the debug inspector, password hashes excluded.
func UserMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	user, err := repositories.DecodeUser(val)
	if err != nil {
		row.Detail = "index"
		return row
	}
	row.Type = "ACCOUNT"
	if user.IsGuest {
		row.Type = "GUEST"
	}
	row.Detail = user.Name
	return row
}
