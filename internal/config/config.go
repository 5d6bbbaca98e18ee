// Package config manages user-level configuration for the mstodo CLI
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Config represents the user's mstodo CLI configuration
type Config struct {
	// CurrentUser stores info about the logged-in account
	CurrentUser *UserInfo `json:"current_user,omitempty"`

	// DefaultListID is the task list used when none is specified
	DefaultListID string `json:"default_list_id,omitempty"`

	// Preferences stores user preferences
	Preferences Preferences `json:"preferences,omitempty"`

	// Version of the config schema
	Version string `json:"version"`
}

// UserInfo stores information about the authenticated account
type UserInfo struct {
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Preferences stores user preferences
type Preferences struct {
	// ColorOutput controls whether to use colored output
	ColorOutput bool `json:"color_output"`

	// Verbose controls verbose output
	Verbose bool `json:"verbose"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// configPath returns the path to the config file
func configPath() (string, error) {
	var configDir string

	// Check XDG_CONFIG_HOME first for testing and Linux compatibility
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		configDir = xdgConfig
	} else {
		var err error
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get config directory: %w", err)
		}
	}

	return filepath.Join(configDir, "mstodo", "config.json"), nil
}

// Load loads the configuration from disk or creates a new one
func Load() (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = load()
	})

	if err != nil {
		return nil, err
	}

	return instance, nil
}

// load reads the config from disk or creates default
func load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled via configPath()
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// defaultConfig returns a default configuration
func defaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Preferences: Preferences{
			ColorOutput: true,
			Verbose:     false,
		},
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	mu.Lock()
	defer mu.Unlock()

	return c.save()
}

func (c *Config) save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically by writing to temp file then renaming
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// GetCurrentUser returns the current account info
func (c *Config) GetCurrentUser() *UserInfo {
	mu.RLock()
	defer mu.RUnlock()
	return c.CurrentUser
}

// SetCurrentUser sets the current account info and saves
func (c *Config) SetCurrentUser(user *UserInfo) error {
	mu.Lock()
	c.CurrentUser = user
	mu.Unlock()

	return c.Save()
}

// ClearCurrentUser removes the current account info and saves
func (c *Config) ClearCurrentUser() error {
	mu.Lock()
	c.CurrentUser = nil
	c.DefaultListID = ""
	mu.Unlock()

	return c.Save()
}

// GetDefaultListID returns the configured default task list
func (c *Config) GetDefaultListID() string {
	mu.RLock()
	defer mu.RUnlock()
	return c.DefaultListID
}

// SetDefaultListID sets the default task list and saves
func (c *Config) SetDefaultListID(listID string) error {
	mu.Lock()
	c.DefaultListID = listID
	mu.Unlock()

	return c.Save()
}

// Reset clears the singleton; for tests only
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}
