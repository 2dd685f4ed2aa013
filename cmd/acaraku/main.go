package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/acaraku/acaraku/docs"
	"github.com/acaraku/acaraku/internal/app"
	"github.com/acaraku/acaraku/internal/config"
)

// @title Acaraku API
// @version 1.0
// @description Event discovery and ticketing marketplace API.
// @host localhost:8080
// @BasePath /
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
	}
}
