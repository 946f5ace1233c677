package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageBadger = "badger"
	StorageMySQL  = "mysql"
)

// Config holds application configuration
type Config struct {
	// MariaDB接続設定
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"3306"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`

	// サーバー設定
	ServerPort   string `envconfig:"SERVER_PORT" default:"8080"`
	Env          string `envconfig:"ENV" default:"development"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	// CORS設定
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`

	Storage    string `envconfig:"STORAGE" default:"memory"`
	BadgerPath string `envconfig:"BADGER_PATH" default:"data/badger"`

	// Presence
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"15s"`
	ParticipantTTL time.Duration `envconfig:"PARTICIPANT_TTL" default:"10s"`
	IdentityHeader string        `envconfig:"IDENTITY_HEADER" default:"User"`
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	switch cfg.Storage {
	case StorageMemory, StorageBadger, StorageMySQL:
	default:
		return Config{}, fmt.Errorf("STORAGE must be one of %s, %s, %s; got %q",
			StorageMemory, StorageBadger, StorageMySQL, cfg.Storage)
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.ParticipantTTL <= 0 {
		return Config{}, fmt.Errorf("PARTICIPANT_TTL must be positive, got %s", cfg.ParticipantTTL)
	}
	if cfg.IdentityHeader == "" {
		return Config{}, fmt.Errorf("IDENTITY_HEADER must not be empty")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	return cfg, nil
}
