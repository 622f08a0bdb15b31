// Package server wires the dependency graph and defines the route table.
// This is the composition root: main.go hands it a Config, and everything —
// database, services, handlers, middleware — is assembled here and nowhere
// else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/handler"
	"github.com/sakif/microblog/internal/middleware"
	sqliteRepo "github.com/sakif/microblog/internal/repository/sqlite"
	"github.com/sakif/microblog/internal/service"
)

// Config holds everything the server needs, read once at startup. The
// signing secrets and expiry windows flow from here into auth.TokenConfig —
// business logic never reads the environment.
type Config struct {
	Port       int
	DBPath     string
	CORSOrigin string // frontend origin allowed to send credentialed requests

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

// Server owns the router and the database connection. The DB is closed
// during graceful shutdown to flush the WAL and release the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer receives only the layer below it: services get repository
// interfaces, handlers get services, routes get handlers.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the /api/v1 route table.
//
// ROUTE TABLE:
//
//	POST   /api/v1/users/register
//	POST   /api/v1/users/login
//	POST   /api/v1/users/refresh-token
//	POST   /api/v1/users/logout                     (auth)
//	POST   /api/v1/users/change-password            (auth)
//	GET    /api/v1/users/current-user               (auth)
//	PATCH  /api/v1/users/update-account             (auth)
//	PATCH  /api/v1/users/update-avatar              (auth)
//	DELETE /api/v1/users/delete-account             (auth)
//	POST   /api/v1/tweets/create-tweet              (auth)
//	PATCH  /api/v1/tweets/update-tweet/{tweetID}    (auth)
//	DELETE /api/v1/tweets/delete-tweet/{tweetID}    (auth)
//	GET    /api/v1/tweets/get-user-tweets           (auth)
//	GET    /api/v1/tweets/get-all-tweets            (optional auth)
//	POST   /api/v1/likes/toggle-tweet-like/{tweetID}   (auth)
//	GET    /api/v1/likes/get-liked-tweets              (auth)
//	GET    /api/v1/likes/get-tweet-likes-count/{tweetID} (auth)
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  s.config.AccessTokenSecret,
		RefreshSecret: s.config.RefreshTokenSecret,
		AccessTTL:     s.config.AccessTokenTTL,
		RefreshTTL:    s.config.RefreshTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	users := s.db.Users()
	sessionService := service.NewSessionService(users, tokens, passwords, s.logger)
	tweetService := service.NewTweetService(s.db.Tweets(), s.logger)
	likeService := service.NewLikeService(s.db.Likes(), s.db.Tweets(), s.logger)

	authHandler := handler.NewAuthHandler(sessionService, s.config.RefreshTokenTTL, s.logger)
	tweetHandler := handler.NewTweetHandler(tweetService, s.logger)
	likeHandler := handler.NewLikeHandler(likeService, s.logger)

	requireAuth := auth.RequireAuth(tokens, users, s.logger)
	optionalAuth := auth.OptionalAuth(tokens, users)

	// Global middleware, in order: request ID, real IP, panic recovery,
	// CORS for the credentialed frontend, request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.CORSOrigin))
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/refresh-token", authHandler.HandleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", authHandler.HandleLogout)
				r.Post("/change-password", authHandler.HandleChangePassword)
				r.Get("/current-user", authHandler.HandleCurrentUser)
				r.Patch("/update-account", authHandler.HandleUpdateAccount)
				r.Patch("/update-avatar", authHandler.HandleUpdateAvatar)
				r.Delete("/delete-account", authHandler.HandleDeleteAccount)
			})
		})

		r.Route("/tweets", func(r chi.Router) {
			r.With(optionalAuth).Get("/get-all-tweets", tweetHandler.HandleFeed)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/create-tweet", tweetHandler.HandleCreate)
				r.Patch("/update-tweet/{tweetID}", tweetHandler.HandleUpdate)
				r.Delete("/delete-tweet/{tweetID}", tweetHandler.HandleDelete)
				r.Get("/get-user-tweets", tweetHandler.HandleListUser)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle-tweet-like/{tweetID}", likeHandler.HandleToggle)
			r.Get("/get-liked-tweets", likeHandler.HandleLikedTweets)
			r.Get("/get-tweet-likes-count/{tweetID}", likeHandler.HandleCount)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
