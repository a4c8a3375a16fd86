package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/coimbatore-discount/internal/app"
	"github.com/example/coimbatore-discount/internal/config"
	"github.com/example/coimbatore-discount/internal/logging"
	"github.com/example/coimbatore-discount/internal/routes"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()

	server := routes.NewApp(logger, true)
	routes.Register(server, backend.Deps)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("fiber shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.AppPort)
	if err := server.Listen(":" + cfg.AppPort); err != nil {
		logger.Error("fiber.Listen error", "error", err)
	}
}
