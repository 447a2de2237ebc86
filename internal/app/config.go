package app

import (
	"errors"
	"fmt"

	"github.com/vk/tilegraph/internal/tiles"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // hcl file or directory
	// GraphName selects the graph to evaluate. Empty means "main", or the
	// only graph when just one is defined.
	GraphName string

	Grid    tiles.Grid
	Draft   bool
	Workers int

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if err := cfg.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tile grid: %w", err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("worker count cannot be negative, got %d", cfg.Workers)
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if err := checkLogFormat(cfg.LogFormat); err != nil {
		return nil, err
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
