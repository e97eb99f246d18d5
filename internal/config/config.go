// Package config provides configuration management for winback using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AppName is the application name used for config file naming.
const AppName = "winback"

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	// Destination is the default directory backups are created in.
	Destination string `mapstructure:"destination" yaml:"destination"`

	// Compress makes zip archives the default backup form.
	Compress bool `mapstructure:"compress" yaml:"compress"`

	// LimitDownloads enables the Downloads size cap by default.
	LimitDownloads bool `mapstructure:"limit_downloads" yaml:"limit_downloads"`

	// Folders is the default folder selection; empty means everything
	// discovered.
	Folders []string `mapstructure:"folders" yaml:"folders"`

	// CustomFolders are extra folder paths included in every backup.
	CustomFolders []string `mapstructure:"custom_folders" yaml:"custom_folders"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	// Config file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(configDir())

	// Environment variable support
	viper.SetEnvPrefix("WINBACK")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("version", 1)
	viper.SetDefault("destination", defaultDestination())
	viper.SetDefault("compress", false)
	viper.SetDefault("limit_downloads", false)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found (when path is empty).
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		// If config file not found...
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// If user specified a path, this is an error
			if path != "" {
				return nil, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			// Real read error (parsing, permissions, etc)
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Path returns the location of the per-user config file.
func Path() string {
	return filepath.Join(configDir(), "config.yaml")
}

// configDir returns the per-user directory searched for config.yaml.
// os.UserConfigDir resolves to %AppData% on Windows, which is where a
// per-user tool's settings belong.
func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, AppName)
}

// defaultDestination is the fallback backup destination: a Backups folder
// next to the user's home directory contents.
func defaultDestination() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Backups")
}
