package config

import "time"

// DefaultExcludes are glob patterns skipped by batch rendering by default.
var DefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"vendor/**",
	"CHANGELOG.md",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "http://localhost:8537",
		SupportEmail: "support@gratipay.com",
		DataDir:      ".pagekit",
		LogLevel:     "info",
		Server: ServerConfig{
			Port: 8537,
		},
		Notifications: NotificationsConfig{
			NoticeTimeout: 5 * time.Second,
			ErrorTimeout:  10 * time.Second,
		},
		Markdown: MarkdownConfig{
			HighlightStyle: "github",
			Include:        []string{"**/*.md"},
			Exclude:        DefaultExcludes,
		},
	}
}
