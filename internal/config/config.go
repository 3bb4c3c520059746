package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	HTTPAddr  string               `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  slog.Level           `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir    string               `env:"SPA_DIR" envDefault:"../web/dist"`
	PublicURL string               `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	ScoreMode scoreboard.ScoreMode `env:"SCORE_MODE" envDefault:"integer"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath       string `env:"DB_PATH" envDefault:"data/scoreboard.db"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix  string `env:"REDIS_PREFIX" envDefault:"scoreboard:"`

	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	Display Display `envPrefix:"DISPLAY_"`
}

// Display tunes the standings page.
type Display struct {
	TriggerInterval time.Duration `env:"TRIGGER_INTERVAL" envDefault:"100ms"`
	DataInterval    time.Duration `env:"DATA_INTERVAL" envDefault:"500ms"`

	Slide         time.Duration `env:"SLIDE" envDefault:"3s"`
	Easing        string        `env:"EASING" envDefault:"cubic-bezier(0.4, 0.0, 0.2, 1)"`
	SettleDelay   time.Duration `env:"SETTLE_DELAY" envDefault:"200ms"`
	Highlight     time.Duration `env:"HIGHLIGHT" envDefault:"1s"`
	Popup         time.Duration `env:"POPUP" envDefault:"4s"`
	PopupFade     time.Duration `env:"POPUP_FADE" envDefault:"500ms"`
	ConfettiDelay time.Duration `env:"CONFETTI_DELAY" envDefault:"2s"`
	Confetti      time.Duration `env:"CONFETTI_LIFETIME" envDefault:"3s"`
	Interlude     time.Duration `env:"INTERLUDE" envDefault:"4s"`
	InterludeGIF  string        `env:"INTERLUDE_GIF"`
	Epsilon       float64       `env:"EPSILON" envDefault:"0.1"`

	RowHeight float64 `env:"ROW_HEIGHT" envDefault:"96"`
	RowGap    float64 `env:"ROW_GAP" envDefault:"12"`
	Width     float64 `env:"WIDTH" envDefault:"1280"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND %q: want memory, sqlite or redis", c.StoreBackend)
	}
	if c.Display.TriggerInterval <= 0 || c.Display.DataInterval <= 0 {
		return fmt.Errorf("display poll intervals must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPasswordHash == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set together")
	}
	return nil
}
