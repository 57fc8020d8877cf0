// Package websocket pushes report lifecycle notifications to subscribers.
// The server tails the Redis report stream and fans events out through a
// hub, so a dashboard learns about freshly analyzed replays without
// polling.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fortuna/victoria/internal/publisher"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development (TODO: restrict in production)
	},
}

// Server represents the WebSocket server
type Server struct {
	port   string
	server *http.Server
	hub    *Hub
	redis  *redis.Client
	logger *zap.Logger
}

// NewServer creates a new WebSocket server backed by the report stream.
func NewServer(redisClient *redis.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub:    NewHub(),
		redis:  redisClient,
		logger: logger,
	}
}

// Start starts the WebSocket server
func (s *Server) Start(ctx context.Context, port string) error {
	s.port = port

	// Start the hub in a goroutine
	go s.hub.Run()
	go s.tailReportStream(ctx)

	// Set up HTTP routes
	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/ws/reports", s.handleReports)
	httpMux.HandleFunc("/ws/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: httpMux,
	}

	s.logger.Info("WebSocket server listening", zap.String("port", port))
	return s.server.ListenAndServe()
}

// handleReports handles WebSocket connections for report notifications
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// tailReportStream forwards report-generated events from the Redis stream
// to connected clients.
func (s *Server) tailReportStream(ctx context.Context) {
	lastID := "$"
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := s.redis.XRead(ctx, &redis.XReadArgs{
			Streams: []string{publisher.ReportStream, lastID},
			Block:   5 * time.Second,
			Count:   32,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			s.logger.Warn("report stream read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				if data, ok := msg.Values["data"].(string); ok {
					s.hub.Broadcast([]byte(data))
				}
			}
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
