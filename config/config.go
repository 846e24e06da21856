package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kkyr/fig"
	"go.uber.org/zap"
)

type DB struct {
	Host               string `default:"localhost"`
	Port               int    `default:"5432"`
	User               string `default:"postgres"`
	Password           string `default:"postgres"`
	Database           string `default:"foodgram"`
	SSLMode            string `fig:"ssl_mode" default:"disable"`
	MaxIdleConnections int    `default:"10"`
	MaxOpenConnections int    `default:"40"`
}

// DSN renders the gorm/pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

type Server struct {
	Host            string        `default:"0.0.0.0"`
	Port            int           `default:"8080"`
	ShutdownTimeout time.Duration `fig:"shutdown_timeout" default:"10s"`
	AllowedOrigins  []string      `fig:"allowed_origins" default:"[http://localhost:3000]"`
}

type Auth struct {
	JWTSecret string        `fig:"jwt_secret" validate:"required"`
	TokenTTL  time.Duration `fig:"token_ttl" default:"24h"`
}

type Redis struct {
	URL string `default:"redis://localhost:6379/0"`
}

// Media covers locally stored images and the URL they are served under.
type Media struct {
	Root    string `default:"./media"`
	BaseURL string `fig:"base_url" default:"/media"`
}

// Storage selects where uploaded images land. The s3 backend needs a bucket;
// the local backend writes under Media.Root.
type Storage struct {
	Backend  string `default:"local"`
	S3Bucket string `fig:"s3_bucket"`
	S3Region string `fig:"s3_region"`
}

type Config struct {
	DB      DB
	Server  Server
	Auth    Auth
	Redis   Redis
	Media   Media
	Storage Storage
}

const envPrefix = "FOODGRAM" // env prefix for env vars

var ErrConfiguration = errors.New("configuration error")

// GetConfig loads configuration from the named file, falling back to
// environment variables alone when no file is present.
func GetConfig(configFileName string, logger *zap.Logger) (*Config, error) {
	config := Config{}
	homeDir, _ := os.UserHomeDir()

	logger.Info("Loading config", zap.String("file", configFileName))

	err := fig.Load(&config, fig.File(configFileName), fig.Dirs(".", homeDir), fig.UseEnv(envPrefix))
	if err != nil {
		if strings.Contains(err.Error(), "file not found") {
			logger.Warn("Could not find config file", zap.String("file", configFileName))

			err = fig.Load(&config, fig.IgnoreFile(), fig.UseEnv(envPrefix))
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if config.Storage.Backend == "s3" && config.Storage.S3Bucket == "" {
		return nil, fmt.Errorf("%w: s3 storage backend needs a bucket", ErrConfiguration)
	}

	return &config, nil
}
