// Command server runs the adaptive training backend: an HTTP API that turns
// an uploaded source document and a learner survey into a personalized,
// lazily generated slide course.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adaptive-elearn/go-training-backend/internal/config"
	"github.com/adaptive-elearn/go-training-backend/internal/docstore"
	"github.com/adaptive-elearn/go-training-backend/internal/genai"
	httpapi "github.com/adaptive-elearn/go-training-backend/internal/http"
	"github.com/adaptive-elearn/go-training-backend/internal/observability"
	"github.com/adaptive-elearn/go-training-backend/internal/repo"
	"github.com/adaptive-elearn/go-training-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.EnableTracing(db); err != nil {
		log.Warn().Err(err).Msg("db tracing not enabled")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	provider, err := genai.NewClient(genai.Config{
		APIKey:     cfg.GenAI.APIKey,
		BaseURL:    cfg.GenAI.BaseURL,
		Model:      cfg.GenAI.Model,
		Timeout:    cfg.GenAI.Timeout,
		MaxRetries: cfg.GenAI.MaxRetries,
		RetryBase:  cfg.GenAI.RetryBase,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("provider client failed")
	}

	docs, err := docstore.New(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("document store failed")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, provider, docs, cfg)

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
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// In-flight generation requests can be slow; give them a real window.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}
