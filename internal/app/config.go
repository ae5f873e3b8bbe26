package app

import (
	"errors"
	"strings"

	"github.com/vk/circuitgrid/internal/config"
)

// Config holds the command-line view of the application settings. Empty
// strings and a nil HealthPort leave the value from the configuration files
// in place.
type Config struct {
	ConfigPaths []string

	LogFormat  string
	LogLevel   string
	HealthPort *int
	DataDir    string
}

// NewConfig normalizes cfg and checks the fields that cannot be validated
// later against the loaded model.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	for _, p := range cfg.ConfigPaths {
		if p == "" {
			return nil, errors.New("configuration paths must not be empty")
		}
	}
	return &cfg, nil
}

// apply overrides the loaded settings with the command-line values.
func (c *Config) apply(m *config.Model) {
	if c.LogLevel != "" {
		m.App.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		m.App.LogFormat = c.LogFormat
	}
	if c.HealthPort != nil {
		m.App.HealthPort = *c.HealthPort
	}
	if c.DataDir != "" {
		m.App.DataDir = c.DataDir
	}
}
