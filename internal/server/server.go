// Package server wires stores, services, handlers and routes together and
// runs the HTTP server with graceful shutdown.
//
// Two servers are built here:
//
//	New          the form API, backed by a remote row store or embedded SQLite
//	NewRowStore  the row store itself, serving SQLite behind POST /rows
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/formsmith/internal/auth"
	"github.com/sakif/formsmith/internal/handler"
	"github.com/sakif/formsmith/internal/middleware"
	"github.com/sakif/formsmith/internal/repository"
	sqliteRepo "github.com/sakif/formsmith/internal/repository/sqlite"
	"github.com/sakif/formsmith/internal/rowstore"
	"github.com/sakif/formsmith/internal/service"
)

// Config holds server configuration. main fills it from the environment.
type Config struct {
	Port int

	// DBPath is the SQLite file used when RowstoreURL is empty, and by the
	// row store server.
	DBPath string

	RowstoreURL     string
	RowstoreKey     string
	RowstoreTimeout time.Duration

	// JWTSecret signs and verifies identity tokens. When empty the
	// authenticated routes are not registered.
	JWTSecret string

	PrivilegedIDs auth.Privileges
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Server is an HTTP server plus the resources it must release on shutdown.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	closers []io.Closer
}

// OpenStore returns the remote row store client when cfg.RowstoreURL is set
// and the embedded SQLite store at cfg.DBPath otherwise. The closer releases
// whatever was opened.
func OpenStore(cfg Config, logger *slog.Logger) (repository.Store, io.Closer, error) {
	if cfg.RowstoreURL != "" {
		logger.Info("using remote row store", slog.String("url", cfg.RowstoreURL))
		return rowstore.NewClient(cfg.RowstoreURL, cfg.RowstoreKey, cfg.RowstoreTimeout), closerFunc(func() error { return nil }), nil
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Info("using embedded row store", slog.String("database", cfg.DBPath))
	return db, db, nil
}

// New builds the form API over the store OpenStore picks.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	store, closer, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(cfg, logger, store)
	if err != nil {
		closer.Close()
		return nil, err
	}
	s.closers = append(s.closers, closer)
	return s, nil
}

// NewWithStore builds the form API over an existing store. The caller keeps
// ownership of store.
func NewWithStore(cfg Config, logger *slog.Logger, store repository.Store) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	if err := s.setupRoutes(store); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// NewRowStore builds the standalone row store: SQLite at cfg.DBPath behind
// POST /rows, guarded by cfg.RowstoreKey.
func NewRowStore(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		closers: []io.Closer{db},
	}
	s.useCommonMiddleware()

	rows := handler.NewRowStoreHandler(db, logger)
	s.router.With(middleware.ServiceKey(cfg.RowstoreKey)).Post("/rows", rows.HandleRows)

	if cfg.RowstoreKey == "" {
		logger.Warn("ROWSTORE_KEY not set, the row store accepts unauthenticated requests")
	}
	return s, nil
}

func (s *Server) useCommonMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
}

// setupRoutes registers the form API.
//
//	POST   /auth/logout                      clear the session cookie
//	GET    /api/me                           caller identity and operator flag
//	POST   /api/forms                        create
//	GET    /api/forms                        list the caller's forms
//	GET    /api/forms/{id}                   get
//	PUT    /api/forms/{id}                   update
//	DELETE /api/forms/{id}                   delete with elements and responses
//	GET    /api/forms/{id}/responses         list responses
//	GET    /api/responses/recent             newest responses across the caller's forms
//	GET    /api/share/{shareId}              public form
//	POST   /api/share/{shareId}/responses    submit
//	POST   /api/share/{shareId}/visibility   evaluate conditions for live values
//	PUT    /api/admin/forms/{id}             operator edit
//	GET    /api/admin/users/{id}/activity    operator view of a user
func (s *Server) setupRoutes(store repository.Store) error {
	s.useCommonMiddleware()

	repo := repository.NewTranslator(store, s.logger)
	forms := service.NewFormService(repo, s.logger)
	directory := service.GeneratedDirectory{}
	responses := service.NewResponseService(forms, repo, directory, s.logger)

	formHandler := handler.NewFormHandler(forms, responses, s.config.PrivilegedIDs, s.logger)
	shareHandler := handler.NewShareHandler(forms, responses, s.config.PrivilegedIDs, s.logger)
	adminHandler := handler.NewAdminHandler(forms, s.config.PrivilegedIDs, s.logger)
	sessionHandler := handler.NewSessionHandler(directory, s.config.PrivilegedIDs, s.logger)

	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set, only public share routes are available")
	}

	s.router.Post("/auth/logout", sessionHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/share/{shareId}", shareHandler.HandleGet)
		r.Post("/share/{shareId}/visibility", shareHandler.HandleVisibility)

		if tokens == nil {
			r.Post("/share/{shareId}/responses", shareHandler.HandleSubmit)
			return
		}

		r.With(auth.OptionalAuth(tokens)).Post("/share/{shareId}/responses", shareHandler.HandleSubmit)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", sessionHandler.HandleMe)
			r.Get("/forms", formHandler.HandleList)
			r.Post("/forms", formHandler.HandleCreate)
			r.Get("/forms/{id}", formHandler.HandleGet)
			r.Put("/forms/{id}", formHandler.HandleUpdate)
			r.Delete("/forms/{id}", formHandler.HandleDelete)
			r.Get("/forms/{id}/responses", formHandler.HandleListResponses)
			r.Get("/responses/recent", formHandler.HandleRecent)

			r.Put("/admin/forms/{id}", adminHandler.HandleUpdate)
			r.Get("/admin/users/{id}/activity", adminHandler.HandleActivity)
		})
	})

	s.logger.Debug("routes registered", slog.Int("privileged_ids", s.config.PrivilegedIDs.Len()))
	return nil
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's stores.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then gives in-flight requests 30
// seconds to finish and closes the stores.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
