package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"credit-feature-pipeline/internal/api"
	"credit-feature-pipeline/internal/config"
	"credit-feature-pipeline/internal/logger"
)

// @title Credit Feature Pipeline API
// @version 1.0
// @description Flattens nested credit bureau records into fixed-schema feature rows.
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	log := logger.New()
	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	appLog, err := logger.NewFromConfig(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log settings")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Run(ctx, cfg, appLog); err != nil {
		appLog.Fatal().Err(err).Msg("Server stopped")
	}
}
