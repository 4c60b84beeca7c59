package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"siteapi/internal/auth"
	"siteapi/internal/comments"
	"siteapi/internal/config"
	"siteapi/internal/database"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	db       database.Service
	comments comments.Service
	gate     *auth.Gate
	logger   *slog.Logger
}

// New wires a Server from explicit dependencies. db may be nil in tests.
func New(db database.Service, svc comments.Service, gate *auth.Gate, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		db:       db,
		comments: svc,
		gate:     gate,
		logger:   logger,
	}
}

// NewHTTPServer configures an http.Server for handler using cfg's timeouts.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
