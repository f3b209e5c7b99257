package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration of the chat server.
type Config struct {
	Port    string `env:"PORT" envDefault:"3000"`
	DBPath  string `env:"DB_PATH" envDefault:"chat.db"`
	DBDebug bool   `env:"DB_DEBUG" envDefault:"false"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"ahsoftwareclub-chat"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	SubscriberQueueSize   int           `env:"SUBSCRIBER_QUEUE_SIZE" envDefault:"256"`
	SlowSubscriberTimeout time.Duration `env:"SLOW_SUBSCRIBER_TIMEOUT" envDefault:"1s"`

	MaxFrameBytes     int64   `env:"MAX_FRAME_BYTES" envDefault:"8388608"`
	MaxMessageLength  int     `env:"MAX_MESSAGE_LENGTH" envDefault:"5000"`
	MessagesPerSecond float64 `env:"MESSAGES_PER_SECOND" envDefault:"10"`
	MessageBurst      int     `env:"MESSAGE_BURST" envDefault:"20"`

	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:8080"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the configuration from environment variables and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Port) == "":
		return errors.New("config: PORT is required")
	case c.DBPath == "":
		return errors.New("config: DB_PATH is required")
	case c.JWTSecret == "":
		return errors.New("config: JWT_SECRET is required")
	case c.TokenTTL <= 0:
		return errors.New("config: TOKEN_TTL must be positive")
	case c.SubscriberQueueSize <= 0:
		return errors.New("config: SUBSCRIBER_QUEUE_SIZE must be positive")
	case c.SlowSubscriberTimeout < 0:
		return errors.New("config: SLOW_SUBSCRIBER_TIMEOUT must not be negative")
	case c.MaxFrameBytes <= 0:
		return errors.New("config: MAX_FRAME_BYTES must be positive")
	case c.MaxMessageLength <= 0:
		return errors.New("config: MAX_MESSAGE_LENGTH must be positive")
	case c.MessagesPerSecond <= 0 || c.MessageBurst <= 0:
		return errors.New("config: MESSAGES_PER_SECOND and MESSAGE_BURST must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
