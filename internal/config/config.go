package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DataDir          string        `env:"DATA_DIR" envDefault:"./data"`
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	AutosaveDebounce time.Duration `env:"AUTOSAVE_DEBOUNCE" envDefault:"500ms"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
