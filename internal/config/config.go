package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/pagekit/internal/logger"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: PAGEKIT_SERVER__PORT sets server.port.
const EnvPrefix = "PAGEKIT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PAGEKIT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: PAGEKIT_LOG_LEVEL -> log_level, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base_url %q: must be an absolute URL", c.BaseURL)
		}
	}

	if c.SupportEmail == "" || !strings.Contains(c.SupportEmail, "@") {
		return fmt.Errorf("invalid support_email %q", c.SupportEmail)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}

	if c.Server.WebhookURL != "" {
		if u, err := url.Parse(c.Server.WebhookURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid server.webhook_url %q", c.Server.WebhookURL)
		}
	}

	if c.Notifications.NoticeTimeout < 0 || c.Notifications.ErrorTimeout < 0 {
		return fmt.Errorf("notification timeouts must be non-negative")
	}

	if _, ok := styles.Registry[c.Markdown.HighlightStyle]; c.Markdown.HighlightStyle != "" && !ok {
		return fmt.Errorf("unknown markdown.highlight_style %q", c.Markdown.HighlightStyle)
	}

	for _, pattern := range append(append([]string{}, c.Markdown.Include...), c.Markdown.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	return nil
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pagekit.db")
}
