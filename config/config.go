// Package config provides configuration management for ovpnctl.
// It handles loading, saving, and managing application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yllada/ovpnctl/common"
)

// LoggingConfig controls the application log output.
type LoggingConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn" or "error".
	Level string `yaml:"level"`
	// EnableFile mirrors log output into a rotated file under the config directory.
	EnableFile bool `yaml:"enable_file"`
	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `yaml:"max_backups"`
	// MaxAgeDays is the age limit for rotated log files.
	MaxAgeDays int `yaml:"max_age_days"`
	// Compress gzips rotated log files.
	Compress bool `yaml:"compress"`
}

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// OpenVPNPath is the openvpn executable name or absolute path.
	OpenVPNPath string `yaml:"openvpn_path"`
	// Elevation chooses how OpenVPN gains root privileges: "auto"
	// (or empty) detects pkexec, "pkexec" requires it, "none" runs
	// openvpn directly.
	Elevation string `yaml:"elevation"`
	// ManagementHost is the loopback address for the management interface.
	ManagementHost string `yaml:"management_host"`
	// ManagementPort is the TCP port for the management interface.
	ManagementPort int `yaml:"management_port"`
	// ProfileDir is where .ovpn configuration files are discovered.
	// Empty means <config dir>/profiles.
	ProfileDir string `yaml:"profile_dir"`
	// PollGraceSeconds is the settle period before the first status query.
	PollGraceSeconds int `yaml:"poll_grace_seconds"`
	// PollIntervalSeconds is how often to refresh byte counters.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	// ShowNotifications enables desktop notifications for connection events.
	ShowNotifications bool `yaml:"show_notifications"`
	// HistoryEnabled records finished sessions in a local database.
	HistoryEnabled bool `yaml:"history_enabled"`
	// Logging controls log verbosity and file output.
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
// These are sensible defaults for most users.
func DefaultConfig() *Config {
	return &Config{
		OpenVPNPath:         "openvpn",
		Elevation:           "auto",
		ManagementHost:      common.DefaultManagementHost,
		ManagementPort:      common.DefaultManagementPort,
		ProfileDir:          "",
		PollGraceSeconds:    int(common.StatusPollGrace.Seconds()),
		PollIntervalSeconds: int(common.StatusPollInterval.Seconds()),
		ShowNotifications:   true,
		HistoryEnabled:      true,
		Logging: LoggingConfig{
			Level:      "info",
			EnableFile: true,
			MaxSizeMB:  5,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// Load loads the configuration from the config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return loadFrom(configPath)
}

func loadFrom(configPath string) (*Config, error) {
	// If it doesn't exist, return default configuration
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyFallbacks()
		if err := cfg.saveTo(configPath); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, common.WrapError(err, "error opening configuration")
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	var config Config
	if err := decoder.Decode(&config); err != nil {
		return nil, common.WrapError(err, "error parsing configuration")
	}

	if err := config.validate(); err != nil {
		return nil, common.WrapError(err, "invalid configuration")
	}
	config.applyFallbacks()

	return &config, nil
}

// validate verifies that configuration values are valid
func (c *Config) validate() error {
	switch c.Elevation {
	case "", "auto", "pkexec", "none":
	default:
		return fmt.Errorf("elevation %q not recognized (use auto, pkexec or none)", c.Elevation)
	}
	if c.ManagementPort != 0 && (c.ManagementPort < 1 || c.ManagementPort > 65535) {
		return fmt.Errorf("management_port %d out of range", c.ManagementPort)
	}
	if c.PollGraceSeconds < 0 {
		return fmt.Errorf("poll_grace_seconds must not be negative")
	}
	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval_seconds must not be negative")
	}
	return nil
}

// applyFallbacks fills unset fields with defaults.
func (c *Config) applyFallbacks() {
	if c.OpenVPNPath == "" {
		c.OpenVPNPath = "openvpn"
	}
	if c.ManagementHost == "" {
		c.ManagementHost = common.DefaultManagementHost
	}
	if c.ManagementPort == 0 {
		c.ManagementPort = common.DefaultManagementPort
	}
	if c.ProfileDir == "" {
		if configDir, err := common.GetConfigDir(); err == nil {
			c.ProfileDir = filepath.Join(configDir, common.ProfilesDirName)
		}
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = int(common.StatusPollInterval.Seconds())
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Logging.Level = "info" // Fallback to default
	}
}

// Save saves the configuration to the file
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}
	return c.saveTo(configPath)
}

func (c *Config) saveTo(configPath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return common.WrapError(err, "error creating config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return common.WrapError(err, "error serializing configuration")
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return common.WrapError(err, "error saving configuration")
	}

	return nil
}

func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", common.WrapError(err, "error getting home directory")
	}

	return filepath.Join(homeDir, ".config", common.ConfigDirName, common.ConfigFileName), nil
}
