// Package main is the entry point for the BlueLume server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/bluelume/bluelume-go/internal/api"
	"github.com/bluelume/bluelume-go/internal/bridge"
	"github.com/bluelume/bluelume-go/internal/config"
	"github.com/bluelume/bluelume-go/internal/database"
	"github.com/bluelume/bluelume-go/internal/database/models"
	"github.com/bluelume/bluelume-go/internal/database/repositories"
	"github.com/bluelume/bluelume-go/internal/led"
	"github.com/bluelume/bluelume-go/internal/services/pubsub"
	"github.com/bluelume/bluelume-go/internal/services/session"
	"github.com/bluelume/bluelume-go/internal/store"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	// Load configuration
	cfg := config.Load()

	log := newLogger(cfg)

	// Print startup banner
	printBanner(cfg)

	// Connect to database
	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 5,
		MaxOpenConn: 10,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() { _ = database.Close(db) }()

	if err := db.AutoMigrate(&models.StoreSnapshot{}); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Rehydrate the persisted stores
	repo := repositories.NewSnapshotRepository(db)
	devices := store.NewDeviceStore(repo)
	scenes := store.NewSceneStore(repo)
	timeTasks := store.NewTimeTaskStore(repo)

	ctx := context.Background()
	if err := devices.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load device store")
	}
	if err := scenes.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load scene store")
	}
	if err := scenes.Seed(ctx, led.BuiltinScenes()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed built-in scenes")
	}
	if err := timeTasks.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load time-task store")
	}
	log.Info().
		Int("devices", len(devices.Devices())).
		Int("scenes", len(scenes.Scenes())).
		Int("timeTasks", len(timeTasks.Tasks())).
		Msg("stores loaded")

	events := pubsub.New()

	srv := &api.Server{
		Devices:         devices,
		Scenes:          scenes,
		TimeTasks:       timeTasks,
		Events:          events,
		Log:             log,
		EventBufferSize: cfg.EventBufferSize,
	}

	// Dial the native LED backend. Failure is not fatal: the stores keep
	// working and bridge-backed endpoints answer 503 until a restart.
	var sessions *session.Manager
	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.BridgeDialTimeout)
	backend, err := bridge.Dial(dialCtx, cfg.BridgeURL, events, log)
	cancelDial()
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.BridgeURL).Msg("led backend unavailable")
	} else {
		status, err := backend.Init(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("led backend init failed")
		} else {
			log.Info().Str("status", status).Msg("led backend ready")
		}
		sessions = session.NewManager(backend, events, log)
		srv.Scanner = backend
		srv.Sessions = sessions
		defer func() { _ = backend.Close() }()
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(cfg.CORSOrigin),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", "http://localhost:"+cfg.Port).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sessions != nil {
		sessions.Shutdown(shutdownCtx)
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}

// newLogger builds the process logger: console output in development,
// JSON in production.
func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  BlueLume Server")
	fmt.Printf("  Version: %s\n", Version)
	fmt.Printf("  Build:   %s\n", BuildTime)
	fmt.Printf("  Commit:  %s\n", GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Port:        %s\n", cfg.Port)
	fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	fmt.Printf("  Bridge:      %s\n", cfg.BridgeURL)
	fmt.Println("============================================")
}
