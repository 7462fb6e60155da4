package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ziadkadry99/pagekit/internal/config"
	"github.com/ziadkadry99/pagekit/internal/logger"
	"github.com/ziadkadry99/pagekit/internal/markdown"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pagekit init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger opens the configured log destination. --verbose forces debug.
func newLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return logger.Open(cfg.LogFile, level)
}

// readPackage accepts either inline JSON or the path of a package.json.
func readPackage(arg string) (*markdown.Package, error) {
	if arg == "" {
		return nil, nil
	}
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		if data, err = os.ReadFile(arg); err != nil {
			return nil, fmt.Errorf("reading package: %w", err)
		}
	}
	return markdown.ParsePackage(data)
}
