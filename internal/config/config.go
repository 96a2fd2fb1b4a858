// Package config loads pwvault settings.
//
// Sources are applied in order, later ones winning:
//  1. defaults (LoadDefaults)
//  2. YAML file (--config, $PWVAULT_CONFIG, or $XDG_CONFIG_HOME/pwvault/config.yaml)
//  3. environment ($PWVAULT_DIR)
//  4. command-line flags, applied by the cmd package
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/illarion/pwvault/internal/logging"
	"github.com/illarion/pwvault/internal/security"
)

const (
	EnvConfig = "PWVAULT_CONFIG"
	EnvDir    = "PWVAULT_DIR"

	DefaultKeyFile   = "vault.key"
	DefaultLogFile   = "passwords.log"
	DefaultIndexFile = "index.db"
	DefaultLength    = 16
	DefaultThreshold = 128.0

	// MaxLength bounds every requested password length.
	MaxLength = 1024
)

// Config holds runtime settings for the pwvault CLI.
type Config struct {
	VaultDir          string  `yaml:"vault_dir"`
	KeyFile           string  `yaml:"key_file"`
	LogFile           string  `yaml:"log_file"`
	IndexFile         string  `yaml:"index_file"`
	DefaultLength     int     `yaml:"default_length"`
	Exclusions        string  `yaml:"exclusions"`
	StrengthThreshold float64 `yaml:"strength_threshold"`
	Keyring           bool    `yaml:"keyring"`
	LogLevel          string  `yaml:"log_level"`
}

// LoadDefaults populates c with defaults. The vault lives in
// $HOME/.pwvault unless the home directory cannot be resolved.
func (c *Config) LoadDefaults() {
	c.VaultDir = ".pwvault"
	if home, err := os.UserHomeDir(); err == nil {
		c.VaultDir = filepath.Join(home, ".pwvault")
	}
	c.KeyFile = DefaultKeyFile
	c.LogFile = DefaultLogFile
	c.IndexFile = DefaultIndexFile
	c.DefaultLength = DefaultLength
	c.Exclusions = ""
	c.StrengthThreshold = DefaultThreshold
	c.Keyring = false
	c.LogLevel = "warn"
}

// Load builds a Config from defaults, the YAML file at path (or the
// discovered one when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = defaultConfigPath()
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if dir := os.Getenv(EnvDir); dir != "" {
		cfg.VaultDir = dir
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	// Fields absent from the file keep their current values
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pwvault", "config.yaml")
}

// Validate checks that the settings can be used.
func (c *Config) Validate() error {
	if c.VaultDir == "" {
		return errors.New("vault_dir must not be empty")
	}
	names := map[string]string{
		"key_file":   c.KeyFile,
		"log_file":   c.LogFile,
		"index_file": c.IndexFile,
	}
	seen := make(map[string]string, len(names))
	for field, name := range names {
		clean, err := security.ValidateName(name)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if other, dup := seen[clean]; dup {
			return fmt.Errorf("%s and %s must name different files", other, field)
		}
		seen[clean] = field
	}
	if c.DefaultLength < 1 || c.DefaultLength > MaxLength {
		return fmt.Errorf("default_length must be between 1 and %d, got %d", MaxLength, c.DefaultLength)
	}
	if c.StrengthThreshold < 0 {
		return fmt.Errorf("strength_threshold must not be negative, got %g", c.StrengthThreshold)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
