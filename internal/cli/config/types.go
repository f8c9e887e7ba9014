// Package config provides configuration management for the docquery CLI.
package config

import "time"

// UIConfig holds configuration for the browser page server.
type UIConfig struct {
	Port          int    `koanf:"port" validate:"min=1,max=65535"`
	SessionSecret string `koanf:"session_secret"`
	Store         string `koanf:"store" validate:"oneof=memory sqlite"`
}

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port:  DefaultUIPort,
		Store: StoreMemory,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := *c.UI
	if ui.Port == 0 {
		ui.Port = DefaultUIPort
	}
	if ui.Store == "" {
		ui.Store = StoreMemory
	}
	return &ui
}

// Config holds all CLI configuration options.
type Config struct {
	BackendURL   string        `koanf:"backend_url" validate:"required,url"`
	Session      string        `koanf:"session" validate:"required"`
	StatePath    string        `koanf:"state_path" validate:"required"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output" validate:"oneof=auto text markdown json"`
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"`
	UI           *UIConfig     `koanf:"ui"`
}

// Default configuration values.
const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultSession    = "default"
	DefaultStateDir   = ".docquery"
	DefaultStateFile  = "state.db"
	DefaultOutput     = "auto" // TTY=text, non-TTY=markdown
	DefaultUIPort     = 8765

	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	// EnvPrefix is the prefix of environment variable overrides.
	EnvPrefix = "DOCQUERY_"
)

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		BackendURL:   DefaultBackendURL,
		Session:      DefaultSession,
		StatePath:    DefaultStatePath(),
		OutputFormat: DefaultOutput,
		UI:           DefaultUIConfig(),
	}
}
