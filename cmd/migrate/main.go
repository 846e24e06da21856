package main

import (
	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
)

var cli struct {
	Config string `help:"Path to config file." short:"c" default:"foodgram.yaml"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("foodgram-migrate"),
		kong.Description("Apply the database schema."),
	)

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck // sync errors on exit are harmless

	cfg, err := config.GetConfig(cli.Config, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("schema is up to date")
}
