// Package config loads slotgrid settings from defaults, an optional YAML
// file and SLOTGRID_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Defaults.
const (
	DefaultDB              = "slotgrid.db"
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultZoom            = "hour"
	DefaultLocation        = "UTC"
)

// Config is the top-level configuration struct for slotgrid.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	DB       string         `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	TimeView TimeViewConfig `mapstructure:"timeview"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TimeViewConfig holds time view defaults.
type TimeViewConfig struct {
	DefaultZoom string `mapstructure:"default_zoom"`
	// Location is the IANA zone windows are aligned in.
	Location string `mapstructure:"location"`
}

// Sentinel validation errors.
var (
	// ErrEmptyDB indicates no database path is configured.
	ErrEmptyDB = errors.New("db must not be empty")
	// ErrInvalidShutdownTimeout indicates a negative shutdown timeout.
	ErrInvalidShutdownTimeout = errors.New("server.shutdown_timeout must be non-negative")
	// ErrInvalidZoom indicates an unknown default zoom.
	ErrInvalidZoom = errors.New("timeview.default_zoom must be hour, day or week")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.DB == "" {
		return ErrEmptyDB
	}
	if c.Server.ShutdownTimeout < 0 {
		return ErrInvalidShutdownTimeout
	}
	switch c.TimeView.DefaultZoom {
	case "", "hour", "day", "week":
	default:
		return ErrInvalidZoom
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeView.Location. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeView.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeView.Location)
	if err != nil {
		return nil, fmt.Errorf("timeview.location: %w", err)
	}
	return loc, nil
}
