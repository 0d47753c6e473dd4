// Package server is the composition root: it opens the database, builds the
// services and handlers, mounts the routes and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/secure-review/internal/analyzer"
	"github.com/sakif/secure-review/internal/auth"
	"github.com/sakif/secure-review/internal/config"
	"github.com/sakif/secure-review/internal/handler"
	"github.com/sakif/secure-review/internal/kv"
	"github.com/sakif/secure-review/internal/middleware"
	"github.com/sakif/secure-review/internal/repository/sqlstore"
	"github.com/sakif/secure-review/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Options overrides collaborators that New would otherwise build from cfg.
type Options struct {
	// GitHub replaces the provider built from the GITHUB_* settings.
	GitHub service.GitHubOAuth
	// Passwords replaces the default bcrypt cost.
	Passwords *auth.PasswordService
}

// Server owns the router and the resources it closes on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlstore.DB
	states kv.Store
}

// New opens the database, migrating it when DB_AUTO_MIGRATE is set, and
// wires every route. The server takes ownership of states.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, a analyzer.Analyzer, states kv.Store, opts Options) (*Server, error) {
	db, err := sqlstore.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.AutoMigrate {
		if _, err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		states: states,
	}

	if err := s.setupRoutes(a, opts); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(a analyzer.Analyzer, opts Options) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.ProjectName, s.config.AccessTokenTTL)
	if err != nil {
		return err
	}

	passwords := opts.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}

	github := opts.GitHub
	if github == nil && s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(auth.GitHubConfig{
			ClientID:     s.config.GitHubClientID,
			ClientSecret: s.config.GitHubClientSecret,
			CallbackURL:  s.callbackURL(),
		})
	}

	store := s.db.Store()

	authHandler := handler.NewAuthHandler(
		service.NewAuthService(store, tokens, passwords, github, s.states, s.logger),
		s.logger,
	)
	analyzeHandler := handler.NewAnalyzeHandler(service.NewAnalysisService(a, store, s.logger), s.logger)
	projectHandler := handler.NewProjectHandler(service.NewProjectService(store, s.logger), s.logger)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": s.db,
		"kv":       s.states,
	}, s.logger)

	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Get("/ready", healthHandler.HandleReady)

	api := func(router chi.Router) {
		router.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login/password", authHandler.HandleLogin)
			// Answer 503 when OAuth is not configured.
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens))
				r.Get("/me", authHandler.HandleMe)
				r.Post("/refresh", authHandler.HandleRefresh)
				r.Post("/change-password", authHandler.HandleChangePassword)
			})
		})

		router.Route("/users/me", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/", authHandler.HandleMe)
			r.Put("/", authHandler.HandleUpdateProfile)
		})

		router.With(auth.OptionalAuth(tokens)).Post("/analyze", analyzeHandler.HandleAnalyze)
		router.With(auth.RequireAuth(tokens)).Get("/analyses/{id}", analyzeHandler.HandleGet)

		router.Route("/projects", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/", projectHandler.HandleCreate)
			r.Get("/", projectHandler.HandleList)
			r.Get("/{id}", projectHandler.HandleGet)
			r.Get("/{id}/analyses", projectHandler.HandleListAnalyses)
		})
	}

	if prefix := s.config.APIPrefix; prefix != "" {
		s.router.Route(prefix, api)
	} else {
		s.router.Group(api)
	}

	if github == nil {
		s.logger.Info("GitHub OAuth not configured; /auth/github routes answer 503")
	}
	return nil
}

func (s *Server) callbackURL() string {
	if s.config.GitHubCallbackURL != "" {
		return s.config.GitHubCallbackURL
	}
	return fmt.Sprintf("http://localhost:%d%s/auth/github/callback", s.config.Port, s.config.APIPrefix)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the state store.
func (s *Server) Close() error {
	return errors.Join(s.db.Close(), s.states.Close())
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes owned resources.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // analysis calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("apiPrefix", s.config.APIPrefix),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
