package command

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-errors"
)

type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

type Config struct {
	Mode           Mode             `json:"mode"`
	LogLevel       string           `json:"log_level"`
	Authoritative  *bool            `json:"authoritative,omitempty"`
	ResyncInterval string           `json:"resync_interval"`
	Listeners      []ListenerConfig `json:"listeners"`
	Storage        StorageConfig    `json:"storage"`
	Nats           NatsConfig       `json:"nats"`
	Bag            BagConfig        `json:"bag"`
	Use            UseConfig        `json:"use"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	switch c.Mode {
	case "", ModeProduction, ModeDevelopment:
	default:
		el.Add(fmt.Errorf("mode must be %q or %q", ModeProduction, ModeDevelopment))
	}

	if c.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			el.Add(fmt.Errorf("parsing log_level: %w", err))
		}
	}

	if c.ResyncInterval != "" {
		d, err := time.ParseDuration(c.ResyncInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing resync_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("resync_interval must be at least 1 second"))
		}
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Bag.validate())
	el.Add(c.Use.validate())

	return el.Err()
}

// IsAuthoritative defaults to true; only an explicit false disables it.
func (c *Config) IsAuthoritative() bool {
	return c.Authoritative == nil || *c.Authoritative
}

func (c *Config) IsDevelopment() bool {
	return c.Mode == ModeDevelopment
}

func (c *Config) logLevel() slog.Level {
	var lvl slog.Level
	if c.LogLevel == "" {
		if c.IsDevelopment() {
			return slog.LevelDebug
		}
		return slog.LevelInfo
	}
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}
