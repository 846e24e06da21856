package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/server"
	"github.com/foodgram/backend/internal/service"
)

var cli struct {
	Config string `help:"Path to config file." short:"c" default:"foodgram.yaml"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("foodgram-api"),
		kong.Description("Recipe sharing API server."),
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

	redisClient, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	storage, err := newImageStorage(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to set up image storage", zap.Error(err))
	}
	images := service.NewImageService(storage)

	denylist := service.NewRedisDenylist(redisClient)
	svcs := api.Services{
		Auth:    service.NewAuthService(db, denylist, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Users:   service.NewUserService(db, images),
		Catalog: service.NewCatalogService(db),
		Recipes: service.NewRecipeService(db, images),
	}

	srv := server.New(cfg, db, redisClient, svcs, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Fatal("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newImageStorage selects the upload backend from configuration.
func newImageStorage(ctx context.Context, cfg *config.Config) (service.ImageStorage, error) {
	if cfg.Storage.Backend == "s3" {
		s3cfg, err := config.NewS3Config(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return service.NewS3Storage(s3cfg), nil
	}
	return service.NewLocalStorage(cfg.Media.Root, cfg.Media.BaseURL), nil
}
