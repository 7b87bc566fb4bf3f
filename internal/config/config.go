// Package config loads the dualfm settings file and parses pane specs.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// MaxRecent bounds the list of recently opened pane specs.
const MaxRecent = 10

// Config holds application configuration.
type Config struct {
	LogLevel string      `toml:"log_level"`
	Left     PaneConfig  `toml:"left"`
	Right    PaneConfig  `toml:"right"`
	S3       S3Config    `toml:"s3"`
	Azure    AzureConfig `toml:"azure"`
	SSH      SSHConfig   `toml:"ssh"`
	Recent   []string    `toml:"recent"`
}

// PaneConfig is the default spec of one side.
type PaneConfig struct {
	Spec string `toml:"spec"`
}

// S3Config holds the S3 client settings.
type S3Config struct {
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Profile   string `toml:"profile"`
	PathStyle bool   `toml:"path_style"`
	// Static keys for MinIO-style endpoints; the default AWS chain is used
	// when either is empty.
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// AzureConfig holds the Azure Blob client settings.
type AzureConfig struct {
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// SSHConfig holds the defaults for ssh: panes.
type SSHConfig struct {
	User           string `toml:"user"`
	Port           string `toml:"port"`
	KeyPath        string `toml:"key_path"`
	KnownHosts     string `toml:"known_hosts"`
	StrictHostKeys bool   `toml:"strict_host_key_checking"`
	AskPassword    bool   `toml:"ask_password"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Left:     PaneConfig{Spec: "fs"},
		Right:    PaneConfig{Spec: "s3"},
		S3:       S3Config{Region: "eu-central-1"},
		SSH:      SSHConfig{Port: "22", StrictHostKeys: true},
	}
}

// Path returns the default config file location.
func Path() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dualfm", "config.toml")
}

// Load reads the config from the default path.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path. A missing file yields Default(); keys
// absent from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Save writes the config to the default path.
func Save(cfg *Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes cfg to path with owner-only permissions. The file is
// written next to its destination and renamed into place.
func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	FixOwnership(path)
	return nil
}

// AddRecent records spec as the most recently used pane spec.
func (c *Config) AddRecent(spec string) {
	for i, s := range c.Recent {
		if s == spec {
			c.Recent = append(c.Recent[:i], c.Recent[i+1:]...)
			break
		}
	}
	c.Recent = append([]string{spec}, c.Recent...)
	if len(c.Recent) > MaxRecent {
		c.Recent = c.Recent[:MaxRecent]
	}
}
