// Package server wires storage, services, handlers and middleware into one
// HTTP server and runs it until SIGINT or SIGTERM.
//
// main.go builds the outward-facing collaborators (geocoder, media store);
// New opens everything else from config:
//
//	DATABASE_URL → sqlite.DB or mongo.Store
//	REDIS_URL    → cache.CampgroundCache (optional)
//	AMQP_URL     → events.AMQPPublisher (optional)
//
// Optional backends that fail to connect are logged and left out; the API
// works without them.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/journeyhub/internal/auth"
	"github.com/sakif/journeyhub/internal/cache"
	"github.com/sakif/journeyhub/internal/config"
	"github.com/sakif/journeyhub/internal/events"
	"github.com/sakif/journeyhub/internal/geocode"
	"github.com/sakif/journeyhub/internal/handler"
	"github.com/sakif/journeyhub/internal/media"
	"github.com/sakif/journeyhub/internal/middleware"
	"github.com/sakif/journeyhub/internal/repository"
	mongoRepo "github.com/sakif/journeyhub/internal/repository/mongo"
	sqliteRepo "github.com/sakif/journeyhub/internal/repository/sqlite"
	"github.com/sakif/journeyhub/internal/service"
)

// connectTimeout bounds the startup probes of optional backends.
const connectTimeout = 5 * time.Second

// Server represents the HTTP server and everything it owns. The store and
// any optional backend connections are closed when Start returns.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   repository.Store
	closers []io.Closer
	checks  map[string]handler.Pinger
}

// OpenStore opens the document store DATABASE_URL names: a mongodb:// URI
// selects MongoDB, anything else is a SQLite path.
func OpenStore(cfg *config.Config) (repository.Store, error) {
	if cfg.UsesMongo() {
		return mongoRepo.New(cfg.DatabaseURL, cfg.MongoDatabase), nil
	}
	db, err := sqliteRepo.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// New creates a Server. geocoder and store are owned by the caller.
func New(cfg *config.Config, logger *slog.Logger, geocoder geocode.Geocoder, store media.Store) (*Server, error) {
	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  db,
		checks: map[string]handler.Pinger{},
	}
	if p, ok := db.(handler.Pinger); ok {
		s.checks["database"] = p
	}

	opts := s.connectOptional()

	if err := s.setupRoutes(geocoder, store, opts); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// connectOptional dials Redis and RabbitMQ when configured and returns the
// service options for whichever came up.
func (s *Server) connectOptional() []service.Option {
	var opts []service.Option

	if s.config.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		client, err := cache.Connect(ctx, s.config.RedisURL)
		cancel()
		if err != nil {
			s.logger.Warn("redis unavailable, campground list cache disabled", slog.String("error", err.Error()))
		} else {
			s.closers = append(s.closers, client)
			s.checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
			opts = append(opts, service.WithCache(cache.NewCampgroundCache(client, s.config.CacheTTL)))
		}
	}

	if s.config.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(s.config.AMQPURL, s.config.EventsExchange)
		if err != nil {
			s.logger.Warn("message broker unavailable, domain events disabled", slog.String("error", err.Error()))
		} else {
			s.closers = append(s.closers, pub)
			opts = append(opts, service.WithEvents(pub))
		}
	}

	return opts
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
//
//	GET    /healthz                    liveness + dependency probes
//	GET    /metrics                    Prometheus
//	GET    /media/*                    local media store files
//	GET    /campgrounds                list
//	GET    /campgrounds/{id}           show
//	GET    /campgrounds/{id}/reviews   reviews with authors
//	POST   /campgrounds                create        (auth)
//	PUT    /campgrounds/{id}           update        (auth, owner)
//	DELETE /campgrounds/{id}           delete        (auth, owner)
//	POST   /campgrounds/{id}/reviews   add review    (auth)
//	DELETE /reviews/{id}               delete review (auth, owner)
//	POST   /uploads                    image upload  (auth)
//	POST   /users/register, /users/login, /users/logout
//	GET    /users/me, /users/stats     (auth)
//	PUT    /users/update               (auth)
//	POST   /users/avatar, DELETE /users/avatar (auth)
func (s *Server) setupRoutes(geocoder geocode.Geocoder, store media.Store, opts []service.Option) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)
	maxUpload := s.config.MaxUploadBytes()

	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	userService := service.NewUserService(s.store, s.store, s.store, passwords, store, s.logger)
	campService := service.NewCampgroundService(s.store, s.store, geocoder, store, s.logger, opts...)
	reviewService := service.NewReviewService(s.store, s.store, s.store, s.logger, opts...)

	authHandler := handler.NewAuthHandler(authService, s.config.SessionTTL, s.config.CookieSecure, s.logger)
	userHandler := handler.NewUserHandler(userService, maxUpload, s.logger)
	campHandler := handler.NewCampgroundHandler(campService, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, s.logger)
	uploadHandler := handler.NewUploadHandler(campService, maxUpload, s.logger)
	healthHandler := handler.NewHealthHandler(s.checks, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(middleware.Metrics)

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	if local, ok := store.(*media.LocalStore); ok {
		prefix := mediaPrefix(s.config.MediaBaseURL)
		s.router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", local.Handler()))
	}

	s.router.Route("/campgrounds", func(r chi.Router) {
		r.Get("/", campHandler.HandleList)
		r.Get("/{id}", campHandler.HandleGet)
		r.Get("/{id}/reviews", reviewHandler.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", campHandler.HandleCreate)
			r.Put("/{id}", campHandler.HandleUpdate)
			r.Delete("/{id}", campHandler.HandleDelete)
			r.Post("/{id}/reviews", reviewHandler.HandleCreate)
		})
	})

	s.router.With(requireAuth).Delete("/reviews/{id}", reviewHandler.HandleDelete)
	s.router.With(requireAuth).Post("/uploads", uploadHandler.HandleUpload)

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Put("/update", userHandler.HandleUpdate)
			r.Post("/avatar", userHandler.HandleAvatarUpload)
			r.Delete("/avatar", userHandler.HandleAvatarDelete)
			r.Get("/stats", userHandler.HandleStats)
		})
	})

	return nil
}

// mediaPrefix derives the route prefix local media is served under from
// MEDIA_BASE_URL, which may be a bare path or an absolute URL.
func mediaPrefix(baseURL string) string {
	p := baseURL
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
		if j := strings.IndexByte(p, '/'); j >= 0 {
			p = p[j:]
		} else {
			p = ""
		}
	}
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return "/media"
	}
	return p
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// close releases the store and optional backends, newest first.
func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("closing backend", slog.String("error", err.Error()))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes every owned connection.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.Bool("mongo", s.config.UsesMongo()),
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
