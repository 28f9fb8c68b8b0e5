package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"readyparser/internal/app"
	"readyparser/internal/config"
	"readyparser/internal/infrastructure"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg, logger, providers)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
