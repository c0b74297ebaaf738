package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"RegSonar/internal/app"
	"RegSonar/internal/config"
	"RegSonar/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration (falls back to REGSONAR_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(context.Background()); err != nil {
		logger.Error("batch run failed", "error", err)
		os.Exit(1)
	}
}
