package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds plancd's settings, read from the environment.
type Config struct {
	Addr        string `env:"PLANC_ADDR" envDefault:":8080"`
	MaxSessions int    `env:"PLANC_MAX_SESSIONS" envDefault:"8"`
	MaxUsers    int    `env:"PLANC_MAX_USERS" envDefault:"16"`
	DeckFile    string `env:"PLANC_DECK_FILE"`
	NATSURL     string `env:"PLANC_NATS_URL"`
	LogLevel    string `env:"PLANC_LOG_LEVEL" envDefault:"info"`
}

func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxSessions <= 0 || cfg.MaxUsers <= 0 {
		return Config{}, fmt.Errorf("session and user limits must be positive")
	}
	return cfg, nil
}
