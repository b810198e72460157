package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// LogConfig controls obslog initialization.
type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Console bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	ToFile  bool   `env:"LOG_TO_FILE" envDefault:"false"`
	File    string `env:"LOG_FILE" envDefault:"logs/ek-server.log"`
	Format  string `env:"LOG_FORMAT" envDefault:"legacy"`
	Caller  bool   `env:"LOG_CALLER" envDefault:"false"`
}

// GameConfig holds the rule-independent room settings.
type GameConfig struct {
	MinPlayers int           `env:"MIN_PLAYERS" envDefault:"2"`
	MaxPlayers int           `env:"MAX_PLAYERS" envDefault:"8"`
	NopeTime   time.Duration `env:"NOPE_TIME" envDefault:"5s"`
	// 0이면 crypto 시드 사용
	Seed uint64 `env:"RNG_SEED" envDefault:"0"`
}

type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":8081"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	MessagesDir string `env:"MESSAGES_DIR"`

	ActionRate  float64 `env:"ACTION_RATE" envDefault:"20"`
	ActionBurst int     `env:"ACTION_BURST" envDefault:"40"`

	LobbyTTL       time.Duration `env:"LOBBY_TTL" envDefault:"6h"`
	LobbySweepSpec string        `env:"LOBBY_SWEEP_SPEC" envDefault:"@every 1m"`

	Game GameConfig
	Log  LogConfig
}

var (
	ErrMinPlayers = errors.New("MIN_PLAYERS must be at least 2")
	ErrMaxPlayers = errors.New("MAX_PLAYERS must be between MIN_PLAYERS and 10")
	ErrNopeTime   = errors.New("NOPE_TIME must be positive")
)

// Load parses the process environment.
func Load() (*AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *AppConfig) Validate() error {
	if c.Game.MinPlayers < 2 {
		return ErrMinPlayers
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers || c.Game.MaxPlayers > 10 {
		return ErrMaxPlayers
	}
	if c.Game.NopeTime <= 0 {
		return ErrNopeTime
	}
	if c.ActionRate <= 0 {
		c.ActionRate = 20
	}
	if c.ActionBurst <= 0 {
		c.ActionBurst = 40
	}
	return nil
}
