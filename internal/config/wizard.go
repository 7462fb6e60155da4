package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// highlightStyles are offered by the wizard. Any chroma style name is
// accepted in the file.
var highlightStyles = []string{"github", "monokai", "dracula", "solarized-light", "nord"}

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to pagekit! Let's configure your site.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Site URL.
	basePrompt := promptui.Prompt{
		Label:   "Site base URL",
		Default: cfg.BaseURL,
		Validate: func(s string) error {
			u, err := url.Parse(s)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("must be an absolute URL")
			}
			return nil
		},
	}
	baseURL, err := basePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	cfg.BaseURL = baseURL

	// 2. Support address.
	supportPrompt := promptui.Prompt{
		Label:   "Support email shown in error messages",
		Default: cfg.SupportEmail,
	}
	if cfg.SupportEmail, err = supportPrompt.Run(); err != nil {
		return nil, fmt.Errorf("support email: %w", err)
	}

	// 3. Server port.
	portPrompt := promptui.Prompt{
		Label:   "Notification server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 || n > 65535 {
				return fmt.Errorf("must be a port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 4. Allowed origins.
	originsPrompt := promptui.Prompt{
		Label:   "Allowed CORS origins (comma-separated, blank for localhost only)",
		Default: "",
	}
	originsStr, err := originsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("allowed origins: %w", err)
	}
	cfg.Server.AllowedOrigins = splitAndTrim(originsStr)

	// 5. Highlight style.
	stylePrompt := promptui.Select{
		Label: "Code highlighting style",
		Items: highlightStyles,
	}
	_, cfg.Markdown.HighlightStyle, err = stylePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("highlight style: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace,
// dropping empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
