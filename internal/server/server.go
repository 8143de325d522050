package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/db"
	"github.com/userhub/apiserver/internal/handlers"
	"github.com/userhub/apiserver/internal/logging"
	"github.com/userhub/apiserver/internal/mq"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/store"
)

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	queue      *mq.MQ
	logger     logrus.FieldLogger
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Auth   config.AuthConfig
	CORS   config.CORSConfig
	Users  services.UserRepository
	Events *services.AccountEvents
	Logger logrus.FieldLogger
}

// New constructs a Server backed by Postgres and the configured broker.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logging.New(cfg.Log)

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	router, err := NewRouter(Deps{
		Auth:   cfg.Auth,
		CORS:   cfg.CORS,
		Users:  store.NewUserRepository(dbConn),
		Events: services.NewAccountEvents(queue, cfg.MQ.Topic, logger),
		Logger: logger,
	})
	if err != nil {
		_ = dbConn.Close()
		if queue != nil {
			_ = queue.Close()
		}
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		queue:      queue,
		logger:     logger,
	}, nil
}

// NewRouter assembles the auth core and mounts every route on a fresh router.
func NewRouter(deps Deps) (*chi.Mux, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	hasher := auth.NewPasswordHasher(deps.Auth.BcryptCost)
	tokens, err := auth.NewTokenService(deps.Auth)
	if err != nil {
		return nil, err
	}
	authenticator, err := auth.NewAuthenticator(deps.Users, hasher)
	if err != nil {
		return nil, err
	}
	authorizer := auth.NewAuthorizer(tokens, deps.Users)
	sessions := auth.NewSessionIssuer(authenticator, tokens, logger)

	userService := services.NewUserService(deps.Users, hasher, deps.Events, logger)
	gates := handlers.NewGatekeeper(authorizer, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger(logger),
		corsHandler(deps.CORS),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Root)
	router.Get("/health", handlers.Healthz)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(userService, sessions, gates, logger))
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, handlers.NewUserHandler(userService, logger), gates)
	})

	return router, nil
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

func corsHandler(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
