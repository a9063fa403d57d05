// Package main is the entry point for the JourneyHub API server.
//
// main only reads configuration, builds the logger and the outward-facing
// collaborators (geocoder, media store) and hands them to internal/server.
// Everything else lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/journeyhub/internal/config"
	"github.com/sakif/journeyhub/internal/geocode"
	"github.com/sakif/journeyhub/internal/media"
	"github.com/sakif/journeyhub/internal/server"
)

func main() {
	// A .env file is a development convenience; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !cfg.UsesMongo() && cfg.DatabaseURL != ":memory:" {
		dbDir := filepath.Dir(cfg.DatabaseURL)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	if cfg.MapTilerAPIKey == "" {
		logger.Warn("MAPTILER_API_KEY not set, campground creation will fail to geocode")
	}
	geocoder := geocode.NewMapTiler(cfg.MapTilerAPIKey, cfg.MapTilerBaseURL)

	store, err := newMediaStore(cfg, logger)
	if err != nil {
		logger.Error("failed to create media store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger, geocoder, store)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger emits JSON in production and text everywhere else.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newMediaStore uses Cloudinary when CLOUDINARY_URL is set and the local
// disk otherwise.
func newMediaStore(cfg *config.Config, logger *slog.Logger) (media.Store, error) {
	if cfg.CloudinaryURL != "" {
		logger.Info("media store: cloudinary")
		return media.NewCloudinaryStore(cfg.CloudinaryURL)
	}
	logger.Info("media store: local disk", slog.String("dir", cfg.MediaDir))
	return media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
}
