// Package config loads and writes the per-installation config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/GideonBear/falconf/internal/logging"
)

// FileName is the config file name inside the installation root.
const FileName = "config.toml"

// EnvLogLevel overrides [log] level.
const EnvLogLevel = "FALCONF_LOG_LEVEL"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the installation configuration.
type Config struct {
	Remote string    `toml:"remote"`
	Branch string    `toml:"branch"`
	Git    GitConfig `toml:"git"`
	Apt    AptConfig `toml:"apt"`
	Log    LogConfig `toml:"log"`
}

// GitConfig is the commit identity used when git has none.
type GitConfig struct {
	AuthorName  string `toml:"author_name"`
	AuthorEmail string `toml:"author_email"`
}

// AptConfig selects how apt pieces run.
type AptConfig struct {
	Command string `toml:"command"`
	Sudo    bool   `toml:"sudo"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Branch: "main",
		Git:    GitConfig{AuthorName: "falconf"},
		Apt:    AptConfig{Command: "apt"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path on top of Default. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s in %s", ErrInvalid, strings.Join(keys, ", "), path)
	}

	if meta.IsDefined("remote") {
		cfg.Remote = strings.TrimSpace(raw.Remote)
	}
	if meta.IsDefined("branch") {
		cfg.Branch = strings.TrimSpace(raw.Branch)
	}
	if meta.IsDefined("git", "author_name") {
		cfg.Git.AuthorName = strings.TrimSpace(raw.Git.AuthorName)
	}
	if meta.IsDefined("git", "author_email") {
		cfg.Git.AuthorEmail = strings.TrimSpace(raw.Git.AuthorEmail)
	}
	if meta.IsDefined("apt", "command") {
		cfg.Apt.Command = strings.TrimSpace(raw.Apt.Command)
	}
	if meta.IsDefined("apt", "sudo") {
		cfg.Apt.Sudo = raw.Apt.Sudo
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides through lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		if _, err := logging.ParseLevel(v); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.Log.Level = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks the values a loaded or new config must have.
func (c Config) Validate() error {
	if c.Remote == "" {
		return fmt.Errorf("%w: remote is required", ErrInvalid)
	}
	if c.Branch == "" {
		return fmt.Errorf("%w: branch must not be empty", ErrInvalid)
	}
	if c.Apt.Command == "" {
		return fmt.Errorf("%w: apt.command must not be empty", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return nil
}

// Save writes cfg to path.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("save config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
