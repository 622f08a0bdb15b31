// Package main is the entry point for the microblog API server.
//
// Its job is deliberately small: read configuration from the environment,
// build the logger, and hand both to the server package. All logic lives in
// internal/; nothing below this file touches os.Getenv.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sakif/microblog/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/microblog.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Two independent secrets, one per token class. Generate with:
	//   ACCESS_TOKEN_SECRET=$(openssl rand -hex 32)
	//   REFRESH_TOKEN_SECRET=$(openssl rand -hex 32)
	accessSecret := os.Getenv("ACCESS_TOKEN_SECRET")
	refreshSecret := os.Getenv("REFRESH_TOKEN_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		logger.Error("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
		os.Exit(1)
	}

	accessTTL := parseDuration(logger, "ACCESS_TOKEN_TTL", 15*time.Minute)
	refreshTTL := parseDuration(logger, "REFRESH_TOKEN_TTL", 7*24*time.Hour)

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		CORSOrigin:         os.Getenv("CORS_ORIGIN"),
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// parseDuration reads a duration env var (e.g. "15m", "168h"), falling back
// to def when unset and exiting on garbage — a silently-wrong token TTL is
// worse than a failed start.
func parseDuration(logger *slog.Logger, name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Error("invalid duration", slog.String("var", name), slog.String("value", v))
		os.Exit(1)
	}
	return d
}
