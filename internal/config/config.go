// Package config loads FluentZip settings from a YAML file, an optional .env
// file and FLUENTZIP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/SUlTlUS/FluentZip/internal/logging"
)

const envPrefix = "FLUENTZIP_"

// Config holds all client settings.
type Config struct {
	// External 7-Zip tool
	ToolDir  string `yaml:"tool_dir"`
	ToolName string `yaml:"tool_name"`

	// Passwords tried in order for header-encrypted archives.
	Passwords []string `yaml:"passwords"`

	// Scratch space for delete lists and staging directories.
	TempDir string `yaml:"temp_dir"`

	RecentFile string `yaml:"recent_file"`
	RecentMax  int    `yaml:"recent_max"`

	Log logging.Config `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ToolName:   "7za",
		RecentFile: filepath.Join(Dir(), "recent.yaml"),
		RecentMax:  10,
		Log: logging.Config{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "fluentzip")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads path (or DefaultPath when empty). A missing file is not an
// error; environment variables override file values.
func Load(path string) (*Config, error) {
	// .env in the working directory is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ToolDir = envOr("TOOL_DIR", c.ToolDir)
	c.ToolName = envOr("TOOL_NAME", c.ToolName)
	c.TempDir = envOr("TEMP_DIR", c.TempDir)
	c.RecentFile = envOr("RECENT_FILE", c.RecentFile)
	c.RecentMax = envInt("RECENT_MAX", c.RecentMax)
	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("LOG_FORMAT", c.Log.Format)
	c.Log.OutputPath = envOr("LOG_FILE", c.Log.OutputPath)

	// FLUENTZIP_PASSWORDS is a comma separated list
	if v := os.Getenv(envPrefix + "PASSWORDS"); v != "" {
		var passwords []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				passwords = append(passwords, p)
			}
		}
		c.Passwords = passwords
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.RecentMax <= 0 {
		return fmt.Errorf("recent_max must be positive, got %d", c.RecentMax)
	}
	if c.ToolName == "" {
		return fmt.Errorf("tool_name must not be empty")
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Save writes the settings as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
