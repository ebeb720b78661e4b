// Package config handles the XDG configuration directory, the config file
// and the stored token.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "qedit"

	// ConfigFile is the YAML settings filename.
	ConfigFile = "config.yaml"

	// TokenFile is the stored bearer token filename.
	TokenFile = "token.json"

	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 5 * time.Second
)

// ErrNoServer is returned when no APIServer address is configured.
var ErrNoServer = errors.New("no server configured (use --server or set server in config.yaml)")

// File is the on-disk shape of config.yaml.
type File struct {
	Server         string `yaml:"server"`
	Username       string `yaml:"username"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Server is the APIServer base URL, always ending in "/".
	Server string

	// Username is the default login name.
	Username string

	// Timeout bounds each request to the server.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Logger is set by the dispatcher. Never nil after New.
	Logger *slog.Logger
}

// New creates a Config for configDir, reading config.yaml if present.
// If configDir is empty, uses XDG_CONFIG_HOME/qedit or $HOME/.config/qedit.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:     dir,
		Timeout: DefaultTimeout,
		Logger:  slog.New(slog.DiscardHandler),
	}

	f, err := cfg.readFile()
	if err != nil {
		return nil, err
	}
	if f.Server != "" {
		cfg.SetServer(f.Server)
	}
	cfg.Username = f.Username
	if f.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(f.TimeoutSeconds) * time.Second
	}
	return cfg, nil
}

func (c *Config) readFile() (File, error) {
	var f File
	data, err := os.ReadFile(c.ConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	return f, nil
}

// SetServer normalizes and stores the server base URL.
func (c *Config) SetServer(server string) {
	server = strings.TrimSpace(server)
	if server == "" {
		c.Server = ""
		return
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	if !strings.HasSuffix(server, "/") {
		server += "/"
	}
	c.Server = server
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// TokenPath returns the path to the stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// Save writes the server and username back to config.yaml.
func (c *Config) Save() error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	f := File{
		Server:         c.Server,
		Username:       c.Username,
		TimeoutSeconds: int(c.Timeout / time.Second),
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath(), data, 0600)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// LoadToken reads the stored token.
func (c *Config) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("invalid token.json: empty access token")
	}
	return &tok, nil
}

// SaveToken writes the token with mode 0600.
func (c *Config) SaveToken(tok *oauth2.Token) error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.TokenPath(), data, 0600)
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
