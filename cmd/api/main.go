package main

import (
	"flag"
	"os"

	"github.com/yigit/tuitiontrack/internal/pkg/logger"
	"github.com/yigit/tuitiontrack/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default configs/config.yaml)")
	flag.Parse()

	// NewServer orchestrates config, logger, database, dependencies and router
	srv, err := server.NewServer(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until a shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
