// Package config loads the server configuration from FINDUO_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// MinJWTSecretLength is the shortest accepted signing key.
const MinJWTSecretLength = 32

// Config is the server configuration.
type Config struct {
	DBPath       string        `env:"FINDUO_DB_PATH"       envDefault:"./data/finduo.db"`
	StoreDriver  string        `env:"FINDUO_STORE_DRIVER"  envDefault:"sqlite"`
	StoreTimeout time.Duration `env:"FINDUO_STORE_TIMEOUT" envDefault:"5s"`
	Port         int           `env:"FINDUO_PORT"          envDefault:"8080"`

	// Timezone decides which calendar day "today" is.
	Timezone string `env:"FINDUO_TIMEZONE" envDefault:"America/Santiago"`

	// ReminderAt is the daily "HH:MM" at which payday reminders are swept.
	ReminderAt       string `env:"FINDUO_REMINDER_AT"         envDefault:"09:00"`
	ReminderLeadDays int    `env:"FINDUO_REMINDER_LEAD_DAYS"  envDefault:"3"`
	OutboxCapacity   int    `env:"FINDUO_OUTBOX_CAPACITY"     envDefault:"1000"`

	// Currency and Language are the preferences of new users.
	Currency string `env:"FINDUO_CURRENCY" envDefault:"CLP"`
	Language string `env:"FINDUO_LANGUAGE" envDefault:"es"`

	JWTSecret        string        `env:"FINDUO_JWT_SECRET,required,notEmpty"`
	TokenTTL         time.Duration `env:"FINDUO_TOKEN_TTL"          envDefault:"24h"`
	BridgeID         string        `env:"FINDUO_BRIDGE_ID"          envDefault:"telegram"`
	BridgeSecretHash string        `env:"FINDUO_BRIDGE_SECRET_HASH,required,notEmpty"`

	RateLimitPerMinute int `env:"FINDUO_RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	RateLimitBurst     int `env:"FINDUO_RATE_LIMIT_BURST"      envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Derived by Load.
	Location       *time.Location `env:"-"`
	ReminderHour   int            `env:"-"`
	ReminderMinute int            `env:"-"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("FINDUO_STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("FINDUO_TIMEZONE: %w", err))
	}
	c.Location = loc

	at, err := time.Parse("15:04", c.ReminderAt)
	if err != nil {
		errs = append(errs, fmt.Errorf("FINDUO_REMINDER_AT: want HH:MM, got %q", c.ReminderAt))
	}
	c.ReminderHour, c.ReminderMinute = at.Hour(), at.Minute()

	if c.ReminderLeadDays < 0 {
		errs = append(errs, errors.New("FINDUO_REMINDER_LEAD_DAYS: must not be negative"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("FINDUO_STORE_TIMEOUT: must be positive"))
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("FINDUO_JWT_SECRET: must be at least %d characters", MinJWTSecretLength))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("FINDUO_PORT: %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
