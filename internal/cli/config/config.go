package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const ConfigFileName = "medlens.json"

// ErrNotFound is returned when no medlens.json exists up the directory tree
var ErrNotFound = errors.New(ConfigFileName + " not found")

// Server represents a MedLens backend the CLI can talk to
type Server struct {
	Alias string `json:"alias"`
	URL   string `json:"url"`
}

// Config represents the project configuration file
type Config struct {
	Servers []Server `json:"servers"`

	// Path is the file the config was loaded from, empty when built in memory
	Path string `json:"-"`
}

// DefaultConfig returns a configuration pointing at a single server
func DefaultConfig(serverURL string) *Config {
	return &Config{
		Servers: []Server{
			{
				Alias: AliasFromURL(serverURL),
				URL:   serverURL,
			},
		},
	}
}

// AliasFromURL derives a readable alias from a server URL's host
func AliasFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "default"
	}
	return strings.ReplaceAll(u.Hostname(), ".", "-")
}

// ValidateURL checks that raw is an absolute http(s) URL
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return nil
}

// FindConfigFile searches for medlens.json in the current directory and its parents
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, currentDir)
}

// Load reads and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg.Path = path
	return &cfg, nil
}

// LoadFromCurrentDir loads config from the current directory or a parent
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects duplicate aliases and malformed URLs
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for i, server := range c.Servers {
		if server.Alias == "" {
			return fmt.Errorf("servers[%d]: alias is required", i)
		}
		if seen[server.Alias] {
			return fmt.Errorf("servers[%d]: duplicate alias '%s'", i, server.Alias)
		}
		seen[server.Alias] = true

		if err := ValidateURL(server.URL); err != nil {
			return fmt.Errorf("servers[%d]: %w", i, err)
		}
	}
	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns the server whose URL matches, ignoring a trailing slash
func (c *Config) GetServerByURL(raw string) (*Server, error) {
	want := strings.TrimRight(raw, "/")
	for i := range c.Servers {
		if strings.TrimRight(c.Servers[i].URL, "/") == want {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", raw)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", ConfigFileName)
	}
	return &c.Servers[0], nil
}
