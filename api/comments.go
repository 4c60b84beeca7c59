// Package handler exposes the comments API as a serverless function.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"siteapi/internal/config"
	"siteapi/internal/logger"
	"siteapi/internal/response"
	"siteapi/internal/server"
)

var (
	mu  sync.Mutex
	app *server.App

	// buildApp is replaced in tests.
	buildApp = build
)

// build wires the service from the environment. The result is reused by
// later invocations on the same warm instance.
func build() (*server.App, error) {
	cfg := config.Load()
	log := logger.New(logger.FromEnv(cfg.ServiceName))
	logger.SetDefault(log)

	if err := config.ValidateEnv(config.RequiredVars); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Build(ctx, cfg, log)
}

// current returns the built app, building it if no earlier attempt succeeded.
func current() (*server.App, error) {
	mu.Lock()
	defer mu.Unlock()

	if app != nil {
		return app, nil
	}
	a, err := buildApp()
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

// Handler is the entry point for Vercel's Go runtime.
func Handler(w http.ResponseWriter, r *http.Request) {
	a, err := current()
	if err != nil {
		slog.Error("comments handler unavailable", "error", err)
		w.Header().Set("Content-Type", response.ContentType)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error","code":"INTERNAL_ERROR"}`))
		return
	}

	a.Handler.ServeHTTP(w, r)
}
