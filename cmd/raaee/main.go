package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"raaee/config"
	"raaee/internal/infra/api"
	"raaee/internal/infra/metrics"
	"raaee/internal/logging"
	"raaee/internal/wire"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.NewMetrics()
	advisor := wire.Advisor(cfg, m, logger)

	server := api.NewServer(api.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		AuthToken:      cfg.Server.AuthToken,
		CORSOrigins:    cfg.Server.CORSOrigins,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, advisor, m, logger)

	if err := server.Start(ctx); err != nil {
		logger.Error("starting server", "error", err)
		os.Exit(1)
	}

	logger.Info("raaee ready", "addr", cfg.Server.Addr, "crops", advisor.KnowledgeBase().Len())

	<-ctx.Done()
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("stopping server", "error", err)
		os.Exit(1)
	}
}
