package main

import (
	"fmt"
	"os"

	"github.com/storypulse-dev/storypulse/internal/config"
	"github.com/storypulse-dev/storypulse/internal/logger"
	"github.com/storypulse-dev/storypulse/internal/scheduler"
	"github.com/storypulse-dev/storypulse/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	log.Info().Str("version", version).Msg("Starting storypulse server")

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	publisher := scheduler.NewPublisher(srv.GetDB(), log)
	if err := publisher.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduled post publisher")
	}

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	publisher.Stop()
}
