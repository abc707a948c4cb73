// Command rowstore serves a SQLite database over the row store protocol, so
// the API server can run with ROWSTORE_URL=http://host:port/rows.
//
// It reads PORT, LOG_LEVEL, DB_PATH and ROWSTORE_KEY.
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

	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.NewRowStore(cfg.Server(), logger)
	if err != nil {
		logger.Error("failed to create row store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("row store ready", slog.String("database", cfg.DBPath))

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
