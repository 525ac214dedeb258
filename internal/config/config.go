// Package config loads wordfetch configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all wordfetch configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Database  DatabaseConfig  `yaml:"database"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BrowserConfig configures the CDP connection.
type BrowserConfig struct {
	// DebuggerURL is the remote-debugging endpoint of an already running
	// browser, e.g. http://localhost:9222.
	DebuggerURL string `yaml:"debugger_url"`

	// Launch, when non-empty, is a browser binary (plus flags) to start when
	// no debugger is reachable.
	Launch []string `yaml:"launch"`

	Headless            bool   `yaml:"headless"`
	ViewportWidth       int    `yaml:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	SessionStore        string `yaml:"session_store"`
}

// FetchConfig configures the fetch pipeline.
type FetchConfig struct {
	// RevealTimeout bounds each attempt to find the reveal control.
	RevealTimeout string `yaml:"reveal_timeout"`

	// SettleDelay is how long to wait after navigation for the page to load.
	SettleDelay string `yaml:"settle_delay"`

	// RevealSettle is how long to wait after clicking reveal for the answer
	// to appear.
	RevealSettle string `yaml:"reveal_settle"`

	// DebugPagePath is where the page HTML is dumped when extraction fails.
	DebugPagePath string `yaml:"debug_page_path"`
}

// DatabaseConfig configures the word database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ExecutionConfig configures the addword hand-off.
type ExecutionConfig struct {
	// AddWordBinary is the companion command the extracted word is handed to.
	AddWordBinary string `yaml:"addword_binary"`

	// AddWordArgs are prepended before the word and date arguments.
	AddWordArgs []string `yaml:"addword_args"`

	DefaultTimeout   string `yaml:"default_timeout"`
	WorkingDirectory string `yaml:"working_directory"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			DebuggerURL:         "http://localhost:9222",
			Headless:            false,
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 30000,
		},
		Fetch: FetchConfig{
			RevealTimeout: "3s",
			SettleDelay:   "2s",
			RevealSettle:  "1s",
			DebugPagePath: ".wordfetch/debug-page.html",
		},
		Database: DatabaseConfig{
			Path: ".wordfetch/words.db",
		},
		Execution: ExecutionConfig{
			AddWordBinary:  "addword",
			DefaultTimeout: "30s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
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

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

// applyEnvOverrides lets environment variables take precedence over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WORDFETCH_DEBUGGER_URL"); v != "" {
		c.Browser.DebuggerURL = v
	}
	if v := os.Getenv("WORDFETCH_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("WORDFETCH_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("WORDFETCH_ADDWORD_BIN"); v != "" {
		c.Execution.AddWordBinary = v
	}
	if v := os.Getenv("WORDFETCH_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// RevealTimeout parses the reveal timeout, with a 3s fallback.
func (c *Config) RevealTimeout() time.Duration {
	return parseDurationOr(c.Fetch.RevealTimeout, 3*time.Second)
}

// SettleDelay parses the settle delay, with a 2s fallback.
func (c *Config) SettleDelay() time.Duration {
	return parseDurationOr(c.Fetch.SettleDelay, 2*time.Second)
}

// RevealSettle parses the post-reveal delay, with a 1s fallback.
func (c *Config) RevealSettle() time.Duration {
	return parseDurationOr(c.Fetch.RevealSettle, time.Second)
}

// ExecTimeout parses the subprocess timeout, with a 30s fallback.
func (c *Config) ExecTimeout() time.Duration {
	return parseDurationOr(c.Execution.DefaultTimeout, 30*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
