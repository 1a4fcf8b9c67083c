// ABOUTME: Configuration loader for the hour farmer
// ABOUTME: Loads account, games and timing settings from environment variables with defaults

package config

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/markalston/steam-hour-farmer/models"
)

// Persona states accepted by the platform (offline through invisible).
const (
	minPersona = 0
	maxPersona = 7
)

type Config struct {
	// Account
	AccountName  string
	Password     string
	SharedSecret string // base64 mobile authenticator secret (optional)
	Persona      *int   // persona state to publish once logged in (optional)

	// Playing intent
	Games []models.Game

	// Timing
	MinRequestInterval time.Duration // minimum spacing of login and games requests
	LoginInterval      time.Duration // how often a login is re-evaluated
	RefreshInterval    time.Duration // how often the playing games are re-asserted
	RateLimitCooldown  time.Duration // wait after being rate limited
	LoginGrace         time.Duration // delay before the first refresh after login

	// Platform session
	DataDir string // machine auth (sentry) storage
}

// rawEnv mirrors the environment before validation.
type rawEnv struct {
	AccountName  string `env:"ACCOUNT_NAME"`
	Password     string `env:"PASSWORD"`
	Games        string `env:"GAMES"`
	Persona      string `env:"PERSONA"`
	SharedSecret string `env:"SHARED_SECRET"`

	MinRequestInterval time.Duration `env:"MIN_REQUEST_INTERVAL" envDefault:"60s"`
	LoginInterval      time.Duration `env:"LOGIN_INTERVAL" envDefault:"10m"`
	RefreshInterval    time.Duration `env:"REFRESH_INTERVAL" envDefault:"5m"`
	RateLimitCooldown  time.Duration `env:"RATE_LIMIT_COOLDOWN" envDefault:"31m"`
	LoginGrace         time.Duration `env:"LOGIN_GRACE" envDefault:"3s"`

	DataDir string `env:"DATA_DIR" envDefault:"SteamData"`
}

func Load() (*Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Validate required fields
	for _, req := range []struct {
		name  string
		value string
	}{
		{"ACCOUNT_NAME", raw.AccountName},
		{"PASSWORD", raw.Password},
		{"GAMES", raw.Games},
	} {
		if req.value == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}

	cfg := &Config{
		AccountName:        raw.AccountName,
		Password:           raw.Password,
		SharedSecret:       strings.TrimSpace(raw.SharedSecret),
		Games:              models.ParseGames(raw.Games),
		MinRequestInterval: raw.MinRequestInterval,
		LoginInterval:      raw.LoginInterval,
		RefreshInterval:    raw.RefreshInterval,
		RateLimitCooldown:  raw.RateLimitCooldown,
		LoginGrace:         raw.LoginGrace,
		DataDir:            raw.DataDir,
	}

	if raw.Persona != "" {
		persona, err := strconv.Atoi(strings.TrimSpace(raw.Persona))
		if err != nil {
			return nil, fmt.Errorf("PERSONA must be a number, got %q", raw.Persona)
		}
		if persona < minPersona || persona > maxPersona {
			return nil, fmt.Errorf("PERSONA must be between %d and %d, got %d", minPersona, maxPersona, persona)
		}
		cfg.Persona = &persona
	}

	if cfg.SharedSecret != "" {
		if _, err := base64.StdEncoding.DecodeString(cfg.SharedSecret); err != nil {
			return nil, fmt.Errorf("SHARED_SECRET must be base64: %w", err)
		}
	}

	// Validate timing values
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"LOGIN_INTERVAL", cfg.LoginInterval},
		{"REFRESH_INTERVAL", cfg.RefreshInterval},
	} {
		if d.value <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"MIN_REQUEST_INTERVAL", cfg.MinRequestInterval},
		{"RATE_LIMIT_COOLDOWN", cfg.RateLimitCooldown},
		{"LOGIN_GRACE", cfg.LoginGrace},
	} {
		if d.value < 0 {
			return nil, fmt.Errorf("%s must not be negative, got %s", d.name, d.value)
		}
	}

	return cfg, nil
}

// HasSharedSecret returns true if two-factor codes can be generated
// without asking the operator.
func (c *Config) HasSharedSecret() bool {
	return c.SharedSecret != ""
}
