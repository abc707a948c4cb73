// Command server runs the formsmith API.
//
// Configuration comes from the environment, optionally seeded from a .env
// file; see package config for the variables. Without ROWSTORE_URL the
// server keeps its data in an embedded SQLite file at DB_PATH.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/formsmith/internal/config"
	"github.com/sakif/formsmith/internal/server"
)

func main() {
	bootLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(); err != nil {
		bootLogger.Error("failed to read .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		bootLogger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)

	if cfg.RowstoreURL == "" {
		// mkdir -p for the embedded database.
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, authentication is disabled")
	}
	if cfg.PrivilegedIDs.Len() == 0 {
		logger.Info("PRIVILEGED_IDS not set, no user has operator access")
	}

	srv, err := server.New(cfg.Server(), logger)
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
