// Package config is the datepoll configuration: the shared core sections plus
// poll, session, database and health settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"

	coreconfig "github.com/m3rciful/datepoll/core/config"
	coredatabase "github.com/m3rciful/datepoll/core/database"
	"github.com/m3rciful/datepoll/internal/flow"
	"github.com/m3rciful/datepoll/internal/health"
)

// PollConfig controls how calendars are labelled and where polls are sent.
type PollConfig struct {
	Locale     string `yaml:"locale" envconfig:"POLL_LOCALE"`
	Timezone   string `yaml:"timezone" envconfig:"POLL_TIMEZONE"`
	MaxOptions int    `yaml:"max_options" envconfig:"POLL_MAX_OPTIONS"`
	// GroupChatID, when set, receives every poll instead of the calendar chat.
	GroupChatID int64 `yaml:"group_chat_id" envconfig:"GROUP_CHAT_ID"`
}

// SessionsConfig enables the idle session sweeper. Zero IdleTTL keeps
// sessions until they complete or are reset.
type SessionsConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"SESSION_IDLE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`
}

// HealthConfig configures the liveness and metrics listener.
type HealthConfig struct {
	Disabled bool   `yaml:"disabled" envconfig:"HEALTH_DISABLED"`
	Listen   string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
	Port     int    `yaml:"port" envconfig:"PORT"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Poll     PollConfig          `yaml:"poll"`
	Sessions SessionsConfig      `yaml:"sessions"`
	Database coredatabase.Config `yaml:"database"`
	Health   HealthConfig        `yaml:"health"`

	location *time.Location
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Location is the time zone used for "today" and month arithmetic.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Load reads path (optional) and the environment, then normalizes.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.Poll.Locale = strings.TrimSpace(c.Poll.Locale)
	if c.Poll.Locale == "" {
		c.Poll.Locale = string(monday.LocaleRuRU)
	}
	supported := false
	for _, l := range monday.ListLocales() {
		if string(l) == c.Poll.Locale {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported poll.locale %q", c.Poll.Locale)
	}

	c.location = time.Local
	if tz := strings.TrimSpace(c.Poll.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid poll.timezone %q: %w", tz, err)
		}
		c.location = loc
	}

	switch {
	case c.Poll.MaxOptions == 0:
		c.Poll.MaxOptions = flow.DefaultMaxOptions
	case c.Poll.MaxOptions < 2 || c.Poll.MaxOptions > flow.DefaultMaxOptions:
		return fmt.Errorf("poll.max_options must be between 2 and %d", flow.DefaultMaxOptions)
	}

	if c.Sessions.IdleTTL < 0 {
		return fmt.Errorf("sessions.idle_ttl must be >= 0")
	}
	if c.Sessions.IdleTTL > 0 && c.Sessions.SweepInterval <= 0 {
		c.Sessions.SweepInterval = c.Sessions.IdleTTL / 2
		if c.Sessions.SweepInterval < time.Minute {
			c.Sessions.SweepInterval = time.Minute
		}
	}

	if c.Health.Listen == "" {
		c.Health.Listen = health.DefaultAddr
		if c.Health.Port > 0 {
			c.Health.Listen = fmt.Sprintf(":%d", c.Health.Port)
		}
	}
	return nil
}
