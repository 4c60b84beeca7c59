package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siteapi/internal/config"
	"siteapi/internal/consul"
	"siteapi/internal/logger"
	"siteapi/internal/server"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.FromEnv(cfg.ServiceName))
	logger.SetDefault(log)

	if err := config.ValidateEnv(config.RequiredVars); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("Starting Comments Service", "host", cfg.Host, "port", cfg.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	app, err := server.Build(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("failed to build service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}()

	registration := register(cfg, log)

	srv := server.NewHTTPServer(cfg, app.Handler)

	go func() {
		log.Info("Comments Service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Comments Service")
	registration()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// register announces the service to Consul when CONSUL_HTTP_ADDR is set and
// returns the matching deregistration.
func register(cfg *config.Config, log *slog.Logger) func() {
	if cfg.ConsulAddr == "" {
		return func() {}
	}

	client, err := consul.NewClientWithToken(cfg.ConsulAddr, cfg.ConsulToken)
	if err != nil {
		log.Warn("consul client error, skipping registration", "error", err)
		return func() {}
	}

	svc := consul.HTTPService(cfg.ServiceName, cfg.Host, cfg.Port, "comments", "social")
	_ = client.Deregister(svc.ID)

	if err := client.Register(svc); err != nil {
		log.Warn("consul register failed", "service_id", svc.ID, "error", err)
		return func() {}
	}
	log.Info("registered with consul", "service_id", svc.ID)

	return func() {
		if err := client.Deregister(svc.ID); err != nil {
			log.Warn("consul deregister failed", "service_id", svc.ID, "error", err)
		}
	}
}
