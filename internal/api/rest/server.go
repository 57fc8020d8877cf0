// Package rest is the HTTP boundary: replay upload, report retrieval, and
// reprocess control. Byte-size limits and the wall-clock analysis budget
// are enforced here, outside the pure pipeline.
package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/victoria/internal/cache"
	"github.com/fortuna/victoria/internal/config"
	"github.com/fortuna/victoria/internal/publisher"
	"github.com/fortuna/victoria/internal/report"
	"github.com/fortuna/victoria/internal/reprocess"
	"github.com/fortuna/victoria/internal/store"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server
func NewServer(port string, db *store.Database, reportSvc *report.Service, redisCache *cache.RedisCache, pub *publisher.RedisPublisher, reprocessSvc *reprocess.Service, limits config.Limits, logger *zap.Logger) *Server {
	handler := NewHandler(db, reportSvc, redisCache, pub, reprocessSvc, limits, logger)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Replays
	api.HandleFunc("/replays", handler.UploadReplay).Methods("POST")

	// Reports
	api.HandleFunc("/reports", handler.ListReports).Methods("GET")
	api.HandleFunc("/reports/{matchID}", handler.GetReport).Methods("GET")

	// Reprocess operations
	api.HandleFunc("/reprocess", handler.StartReprocess).Methods("POST")
	api.HandleFunc("/reprocess/status", handler.ReprocessStatus).Methods("GET")

	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
	}
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
