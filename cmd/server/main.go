// Command server runs the assistant backend: the HTTP API the WhatsApp
// bridge and the customer-service dashboard talk to, plus the background
// analytics pipeline and the WebSocket event stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rsh-ai/assistant-backend/internal/analytics"
	"github.com/rsh-ai/assistant-backend/internal/assistant"
	"github.com/rsh-ai/assistant-backend/internal/botgate"
	"github.com/rsh-ai/assistant-backend/internal/config"
	httpapi "github.com/rsh-ai/assistant-backend/internal/http"
	"github.com/rsh-ai/assistant-backend/internal/http/handlers"
	"github.com/rsh-ai/assistant-backend/internal/idempotency"
	"github.com/rsh-ai/assistant-backend/internal/observability"
	"github.com/rsh-ai/assistant-backend/internal/repo"
	"github.com/rsh-ai/assistant-backend/internal/runs"
	"github.com/rsh-ai/assistant-backend/internal/services"
	"github.com/rsh-ai/assistant-backend/internal/settings"
	"github.com/rsh-ai/assistant-backend/internal/sysutil"
	"github.com/rsh-ai/assistant-backend/internal/threads"
	"github.com/rsh-ai/assistant-backend/internal/ws"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title        Assistant Backend API
// @version      1.0
// @description  Conversational session layer between the WhatsApp bridge, the remote assistant, and the customer-service dashboard.
// @BasePath     /
func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// State directories
	for _, p := range []string{cfg.DBPath, cfg.ThreadsPath, cfg.SettingsPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Fatal().Err(err).Str("dir", dir).Msg("create state directory")
			}
		}
	}

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	store, err := threads.OpenFileStore(cfg.ThreadsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ThreadsPath).Msg("open thread store")
	}

	settingsStore, err := settings.Open(cfg.SettingsPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.SettingsPath).Msg("open settings")
	}

	// Remote assistant
	client, err := assistant.NewClient(assistant.Config{
		BaseURL:     cfg.Assistant.BaseURL,
		APIKey:      cfg.Assistant.APIKey,
		HTTPTimeout: cfg.Assistant.HTTPTimeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("assistant client")
	}

	registry := threads.NewRegistry(store, client, logger)

	orch := runs.NewOrchestrator(client, registry, cfg.Assistant.AssistantID, logger)
	orch.Schedule = runs.PollSchedule{
		Initial: cfg.Run.PollInitial,
		Growth:  cfg.Run.PollGrowth,
		Max:     cfg.Run.PollMax,
	}
	orch.WallBudget = cfg.Run.WallBudget

	// Bot gate, optionally durable across restarts
	var gate *botgate.Gate
	if cfg.BotGatePersist {
		gate, err = botgate.NewPersistent(ctx, repo.NewBotStatusStore(db), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("restore bot gate state")
		}
	} else {
		gate = botgate.New(logger)
	}

	// Dashboard event stream and analytics
	hub := ws.NewHub(logger)
	defer hub.Close()

	pipeline := analytics.NewPipeline(db, registry, orch, logger)
	pipeline.Push = hub

	askSvc := &services.AskService{
		DB:              db,
		Gate:            gate,
		Threads:         registry,
		Runner:          orch,
		MaxMessageRunes: cfg.MaxMessageRunes,
		Push:            hub,
		Log:             logger,
	}
	fbSvc := &services.FeedbackService{DB: db}

	h := handlers.New(askSvc, fbSvc, gate, registry, settingsStore, pipeline, handlers.AdminDeps{DB: db})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Handlers: h,
		Replay:   idempotency.NewCache(cfg.IdempotencyTTL, cfg.IdempotencyMaxEntries),
		Hub:      hub,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
