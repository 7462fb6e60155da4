package config

import "time"

// Config is the top-level pagekit configuration, corresponding to .pagekit.yml.
type Config struct {
	// BaseURL is the site the page kit talks to.
	BaseURL       string              `yaml:"base_url" koanf:"base_url"`
	SupportEmail  string              `yaml:"support_email" koanf:"support_email"`
	DataDir       string              `yaml:"data_dir" koanf:"data_dir"`
	LogLevel      string              `yaml:"log_level" koanf:"log_level"`
	LogFile       string              `yaml:"log_file" koanf:"log_file"`
	Server        ServerConfig        `yaml:"server" koanf:"server"`
	Notifications NotificationsConfig `yaml:"notifications" koanf:"notifications"`
	Markdown      MarkdownConfig      `yaml:"markdown" koanf:"markdown"`
}

// ServerConfig holds settings for the notification server.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowAll       bool     `yaml:"allow_all" koanf:"allow_all"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	WebhookURL     string   `yaml:"webhook_url" koanf:"webhook_url"`
}

// NotificationsConfig holds the auto-dismiss delays of shown notifications.
type NotificationsConfig struct {
	NoticeTimeout time.Duration `yaml:"notice_timeout" koanf:"notice_timeout"`
	ErrorTimeout  time.Duration `yaml:"error_timeout" koanf:"error_timeout"`
}

// MarkdownConfig holds rendering settings.
type MarkdownConfig struct {
	HighlightStyle string   `yaml:"highlight_style" koanf:"highlight_style"`
	Unsafe         bool     `yaml:"unsafe" koanf:"unsafe"`
	Include        []string `yaml:"include" koanf:"include"`
	Exclude        []string `yaml:"exclude" koanf:"exclude"`
}
