package markdown

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Package is the subset of an npm package descriptor the renderer uses.
type Package struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Repository  Repository `json:"repository"`
}

// Repository is the repository member of a package descriptor. It may be
// written as a string or as an object with a url member.
type Repository struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

func (r *Repository) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.URL = s
		return nil
	}
	type plain Repository
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("repository must be a string or object: %w", err)
	}
	*r = Repository(p)
	return nil
}

// ParsePackage decodes a package descriptor.
func ParsePackage(data []byte) (*Package, error) {
	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing package: %w", err)
	}
	return &p, nil
}

// GitHub returns the owner and repository name when the repository lives
// on GitHub. Accepted forms include "owner/repo", "github:owner/repo",
// "git@github.com:owner/repo.git" and http(s)/git URLs.
func (p *Package) GitHub() (owner, repo string, ok bool) {
	if p == nil {
		return "", "", false
	}
	raw := strings.TrimSpace(p.Repository.URL)
	var rest string
	switch {
	case raw == "":
		return "", "", false
	case strings.HasPrefix(raw, "github:"):
		rest = strings.TrimPrefix(raw, "github:")
	case strings.HasPrefix(raw, "git@github.com:"):
		rest = strings.TrimPrefix(raw, "git@github.com:")
	case strings.Contains(raw, "://"):
		u, err := url.Parse(strings.TrimPrefix(raw, "git+"))
		if err != nil || !strings.EqualFold(u.Hostname(), "github.com") {
			return "", "", false
		}
		rest = strings.TrimPrefix(u.Path, "/")
	case !strings.Contains(raw, ":") && strings.Count(raw, "/") == 1:
		rest = raw
	default:
		return "", "", false
	}

	rest = strings.TrimSuffix(strings.TrimSuffix(rest, "/"), ".git")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// BlobURL returns the GitHub page for a file in the repository.
func (p *Package) BlobURL(file string) (string, bool) {
	owner, repo, ok := p.GitHub()
	if !ok {
		return "", false
	}
	return "https://github.com/" + owner + "/" + repo + "/blob/master/" + cleanRelative(file), true
}

// RawURL returns the raw content URL for a file in the repository.
func (p *Package) RawURL(file string) (string, bool) {
	owner, repo, ok := p.GitHub()
	if !ok {
		return "", false
	}
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/master/" + cleanRelative(file), true
}

func cleanRelative(file string) string {
	cleaned := path.Clean("/" + file)
	return strings.TrimPrefix(cleaned, "/")
}
