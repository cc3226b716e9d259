package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mahmed0x1/ARTEMIS/internal/app"
	"github.com/mahmed0x1/ARTEMIS/internal/config"
	httpinfra "github.com/mahmed0x1/ARTEMIS/internal/infra/http"
	"github.com/mahmed0x1/ARTEMIS/internal/infra/logging"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	oracle, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to init oracle: %v", err)
	}
	defer oracle.Close()

	limiter, err := oracle.RateLimiter(ctx)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}

	srv := httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Resolver:    oracle.Oracle,
		Registrar:   oracle.Registrar,
		Evaluator:   oracle.Evaluator,
		Metrics:     oracle.Metrics.Handler(),
		RateLimiter: limiter,
		Logger:      logger,
		DBEnabled:   oracle.Store.Enabled(),
	})
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
