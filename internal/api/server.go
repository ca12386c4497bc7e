package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/streambox/internal/api/handlers"
	"github.com/amaumene/streambox/internal/api/middleware"
	"github.com/amaumene/streambox/internal/config"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Service is everything the routes need from the Query/Command Service
type Service interface {
	handlers.CatalogService
	handlers.UserListService
	handlers.StatusSource
	middleware.IdentityResolver
}

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	service Service
	metrics *telemetry.Metrics
	logger  *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, service Service, metrics *telemetry.Metrics, logger *logrus.Logger) *Server {
	s := &Server{
		service: service,
		metrics: metrics,
		logger:  logger,
	}

	router := mux.NewRouter()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(router, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler, logging included
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(router *mux.Router) {
	router.Use(middleware.Metrics(s.metrics))

	// Health check
	router.Handle("/health", handlers.NewHealthHandler(s.logger)).Methods(http.MethodGet)

	// Status endpoint
	router.Handle("/status", handlers.NewStatusHandler(s.service, s.logger)).Methods(http.MethodGet)

	// Prometheus
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// Catalog
	content := handlers.NewContentHandler(s.service, s.logger)
	router.HandleFunc("/api/content", content.List).Methods(http.MethodGet)
	router.HandleFunc("/api/content/", content.MissingID).Methods(http.MethodGet)
	router.HandleFunc("/api/content/{id}", content.Get).Methods(http.MethodGet)

	// Favorites of the demo user
	lists := handlers.NewUserListHandler(s.service, s.logger)
	userList := router.PathPrefix("/api/user-list").Subrouter()
	userList.Use(middleware.Identity(s.service, s.logger))
	userList.HandleFunc("", lists.List).Methods(http.MethodGet)
	userList.HandleFunc("", lists.Add).Methods(http.MethodPost)
	userList.HandleFunc("/", lists.MissingID).Methods(http.MethodDelete)
	userList.HandleFunc("/{contentId}", lists.Remove).Methods(http.MethodDelete)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
