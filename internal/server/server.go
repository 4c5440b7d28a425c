package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viewtube/apiserver/config"
	"github.com/viewtube/apiserver/internal/db"
	"github.com/viewtube/apiserver/internal/events"
	"github.com/viewtube/apiserver/internal/handlers"
	"github.com/viewtube/apiserver/internal/services"
	"github.com/viewtube/apiserver/internal/storage"
	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     events.Backend
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(cfg.JWT)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	mediaStorage, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	eventBackend, err := newEventBackend(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	subscriptionRepo := store.NewSubscriptionRepository(dbConn)

	publisher := services.NewEventPublisher(eventBackend)
	mediaService := services.NewMediaService(mediaStorage, cfg.Storage.PublicBaseURL)
	userService := services.NewUserService(userRepo)
	authService := services.NewAuthService(userRepo, issuer, publisher)
	channelService := services.NewChannelService(userRepo, subscriptionRepo, publisher)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/v1/users", func(r chi.Router) {
		handlers.AuthRouter(r, authService, userService, mediaService, issuer)
		handlers.AccountRouter(r, userService, mediaService, issuer)
	})
	router.Route("/api/v1/channels", func(r chi.Router) {
		handlers.ChannelRouter(r, channelService, issuer)
	})

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
		router:     router,
		db:         dbConn,
		events:     eventBackend,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	return s.httpServer.Close()
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	var backend storage.ObjectStorage

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return wrapped, nil
}

// newEventBackend returns nil when no broker is configured; event
// publishing is then disabled.
func newEventBackend(ctx context.Context, cfg config.EventsConfig) (events.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		return events.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return events.NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
