package app

import (
	"errors"
	"fmt"
	"time"
)

// Output formats for Run.
const (
	FormatText = "text"
	FormatCSV  = "csv"
)

// Config holds all the necessary configuration for an App instance.
type Config struct {
	WorkflowPath string
	// InputPaths overrides or adds table paths by input id.
	InputPaths map[string]string
	// Outputs restricts printing to these named outputs when set.
	Outputs    []string
	Format     string
	MaxRows    int
	SQLitePath string

	LogFormat       string
	LogLevel        string
	Workers         int
	FetchTimeout    time.Duration
	SettleTimeout   time.Duration
	ListenAddr      string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	switch cfg.Format {
	case "":
		cfg.Format = FormatText
	case FormatText, FormatCSV:
	default:
		return nil, fmt.Errorf("invalid format %q: must be 'text' or 'csv'", cfg.Format)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = 5 * time.Minute
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	return &cfg, nil
}
