// Command goshare-server runs the goShare HTTP API and event gateway.
//
// Configuration is read from defaults, .env, the environment, an optional
// JSON file (-c) and flags, in that order.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goShare/internal/app"
	"github.com/MrEthical07/goShare/internal/config"
	"github.com/MrEthical07/goShare/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Args[1:], ".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
