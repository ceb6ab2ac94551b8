// Package config loads planner settings from ~/.config/planner/config.yaml and
// PLANNER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	xdgAppName = "planner"
	configFile = "config.yaml"
	envPrefix  = "PLANNER_"
)

type Config struct {
	API      APIConfig      `koanf:"api"`
	Calendar CalendarConfig `koanf:"calendar"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	State    StateConfig    `koanf:"state"`
	Sync     SyncConfig     `koanf:"sync"`
}

type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

type CalendarConfig struct {
	Name string `koanf:"name"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StateConfig locates the snapshot, pending and event index files.
type StateConfig struct {
	Dir string `koanf:"dir"`
}

// SyncConfig paces Resync.
type SyncConfig struct {
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Timeout: 15 * time.Second,
		},
		Calendar: CalendarConfig{Name: "Planner"},
		Server:   ServerConfig{Host: "localhost", Port: 8000},
		Log:      LogConfig{Level: "warn", Format: "console"},
		Sync:     SyncConfig{RatePerSecond: 5, Burst: 1},
	}
}

// GetXdgHome returns ~/.config/planner.
func GetXdgHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads defaults, then the YAML file at path (the default path when
// empty), then a .env file in the working directory and the environment.
// Later sources win.
//
//	PLANNER_API_BASE_URL      -> api.base_url
//	PLANNER_SYNC_RATE_PER_SECOND -> sync.rate_per_second
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Split on the first underscore only: section, then field_name.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Sync.RatePerSecond < 0 {
		return fmt.Errorf("sync.rate_per_second must not be negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// StateDir is where the snapshot and side tables live.
func (c *Config) StateDir() (string, error) {
	if c.State.Dir != "" {
		return c.State.Dir, nil
	}
	return GetXdgHome()
}

// Save writes cfg as YAML to path (the default path when empty). The API
// token is included, so the file is owner-only.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := yaml.Parser().Marshal(cfg.toMap())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) toMap() map[string]interface{} {
	return map[string]interface{}{
		"api": map[string]interface{}{
			"base_url": c.API.BaseURL,
			"token":    c.API.Token,
			"timeout":  c.API.Timeout.String(),
		},
		"calendar": map[string]interface{}{
			"name": c.Calendar.Name,
		},
		"server": map[string]interface{}{
			"host": c.Server.Host,
			"port": c.Server.Port,
		},
		"log": map[string]interface{}{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
		"state": map[string]interface{}{
			"dir": c.State.Dir,
		},
		"sync": map[string]interface{}{
			"rate_per_second": c.Sync.RatePerSecond,
			"burst":           c.Sync.Burst,
		},
	}
}
