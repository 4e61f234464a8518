// Package config loads the service configuration from YAML with
// environment variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cubicle configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Store configuration
	Store StoreConfig `yaml:"store"`

	// Content configuration
	Content ContentConfig `yaml:"content"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	RequestTimeout string `yaml:"request_timeout"`
}

// RequestTimeoutDuration parses the configured timeout, falling back to
// two minutes on a missing or malformed value.
func (c LLMConfig) RequestTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// ContentConfig configures scenario and skill loading.
type ContentConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Dir        string   `yaml:"dir"`
	Level      string   `yaml:"level"`
	Categories []string `yaml:"categories"`
}

// DefaultConfig returns a working local configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:          "gemini-2.0-flash",
			RequestTimeout: "2m",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(".cubicle", "sessions.db"),
		},
		Content: ContentConfig{
			Dir:   "modules",
			Watch: true,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Dir:     ".cubicle",
			Level:   "info",
		},
	}
}

// Load reads configuration from path, applying defaults for anything the
// file omits and environment overrides on top. A missing file is not an
// error; it yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("CUBICLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("CUBICLE_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("CUBICLE_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if addr := os.Getenv("CUBICLE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("CUBICLE_DB"); path != "" {
		c.Store.Path = path
	}
	if dir := os.Getenv("CUBICLE_CONTENT_DIR"); dir != "" {
		c.Content.Dir = dir
	}
	if dir := os.Getenv("CUBICLE_LOG_DIR"); dir != "" {
		c.Logging.Dir = dir
	}
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set GEMINI_API_KEY)")
	}
	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend must be sqlite or memory, got %q", c.Store.Backend)
	}
	return nil
}
