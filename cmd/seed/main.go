package main

import (
	"encoding/json"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

var cli struct {
	Config      string `help:"Path to config file." short:"c" default:"foodgram.yaml"`
	Tags        string `help:"Path to the tag fixture." default:"data/tags.json"`
	Ingredients string `help:"Path to the ingredient fixture." default:"data/ingredients.json"`
}

// Loads the tag and ingredient catalogs from JSON fixtures. Rows that are
// already present are left untouched, so reruns are safe.
func main() {
	kong.Parse(&cli,
		kong.Name("foodgram-seed"),
		kong.Description("Load the tag and ingredient catalogs."),
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

	catalog := service.NewCatalogService(db)

	var tags []models.Tag
	if err := loadFixture(cli.Tags, &tags); err != nil {
		logger.Fatal("failed to read tag fixture", zap.String("file", cli.Tags), zap.Error(err))
	}
	added, err := catalog.SeedTags(tags)
	if err != nil {
		logger.Fatal("failed to seed tags", zap.Error(err))
	}
	logger.Info("tags seeded", zap.Int("in_fixture", len(tags)), zap.Int64("added", added))

	var ingredients []models.Ingredient
	if err := loadFixture(cli.Ingredients, &ingredients); err != nil {
		logger.Fatal("failed to read ingredient fixture", zap.String("file", cli.Ingredients), zap.Error(err))
	}
	added, err = catalog.SeedIngredients(ingredients)
	if err != nil {
		logger.Fatal("failed to seed ingredients", zap.Error(err))
	}
	logger.Info("ingredients seeded", zap.Int("in_fixture", len(ingredients)), zap.Int64("added", added))
}

func loadFixture(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
