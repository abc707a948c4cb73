// Package config reads the environment shared by the API server, the row
// store server and formsctl.
//
//	PORT              listen port (8080)
//	LOG_LEVEL         debug, info, warn or error (info)
//	DB_PATH           SQLite file for the embedded or standalone store (data/formsmith.db)
//	ROWSTORE_URL      remote row store endpoint; empty means embedded SQLite
//	ROWSTORE_KEY      bearer key the row store requires
//	ROWSTORE_TIMEOUT  per-call timeout such as 5s (10s)
//	JWT_SECRET        identity token secret
//	PRIVILEGED_IDS    comma separated operator user ids
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/rowstore"
	"github.com/sakif/formsmith/internal/server"
)

const (
	DefaultPort   = 8080
	DefaultDBPath = "data/formsmith.db"
)

// Config is the parsed environment.
type Config struct {
	Port            int
	LogLevel        slog.Level
	DBPath          string
	RowstoreURL     string
	RowstoreKey     string
	RowstoreTimeout time.Duration
	JWTSecret       string
	PrivilegedIDs   auth.Privileges
}

// LoadDotEnv copies variables from the given .env files (".env" when none
// are named) into the process environment. Variables already set win, and a
// missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load parses the environment through getenv, usually os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:            DefaultPort,
		LogLevel:        slog.LevelInfo,
		DBPath:          DefaultDBPath,
		RowstoreURL:     strings.TrimSpace(getenv("ROWSTORE_URL")),
		RowstoreKey:     getenv("ROWSTORE_KEY"),
		RowstoreTimeout: rowstore.DefaultTimeout,
		JWTSecret:       getenv("JWT_SECRET"),
		PrivilegedIDs:   auth.ParsePrivileges(getenv("PRIVILEGED_IDS")),
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := getenv("ROWSTORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid ROWSTORE_TIMEOUT %q", v)
		}
		cfg.RowstoreTimeout = d
	}

	return cfg, nil
}

// Logger builds the text logger every binary uses.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

// Server is the subset the HTTP servers need.
func (c Config) Server() server.Config {
	return server.Config{
		Port:            c.Port,
		DBPath:          c.DBPath,
		RowstoreURL:     c.RowstoreURL,
		RowstoreKey:     c.RowstoreKey,
		RowstoreTimeout: c.RowstoreTimeout,
		JWTSecret:       c.JWTSecret,
		PrivilegedIDs:   c.PrivilegedIDs,
	}
}
