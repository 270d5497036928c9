package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// MinMonitorIntervalSec is the lowest polling interval the monitor will
// accept, to avoid hammering mail servers.
const MinMonitorIntervalSec = 10

// MonitorConfig holds background monitoring settings.
type MonitorConfig struct {
	// Enabled controls whether monitors are started for enabled accounts.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// IntervalSec is how often (in seconds) each account is polled.
	// Values below MinMonitorIntervalSec are raised to the minimum.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// SyncConfig holds per-window fetch settings.
type SyncConfig struct {
	// FetchLimit caps how many messages one window may fetch; 0 means
	// no cap.
	FetchLimit int `mapstructure:"fetch_limit" yaml:"fetch_limit"`

	// BatchSize is how many messages are processed between progress
	// reports.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DBPath is the SQLite database file location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// AttachmentDir is the default root for explicitly saved attachments.
	AttachmentDir string `mapstructure:"attachment_dir" yaml:"attachment_dir"`

	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/maildash/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "maildash", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		DBPath:        filepath.Join(home, ".local", "share", "maildash", "maildash.db"),
		AttachmentDir: filepath.Join(home, "Documents", "maildash-attachments"),
		Monitor: MonitorConfig{
			Enabled:     true,
			IntervalSec: 30,
		},
		Sync: SyncConfig{
			FetchLimit: 0,
			BatchSize:  100,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("attachment_dir", defaults.AttachmentDir)
	v.SetDefault("monitor.enabled", defaults.Monitor.Enabled)
	v.SetDefault("monitor.interval_sec", defaults.Monitor.IntervalSec)
	v.SetDefault("sync.fetch_limit", defaults.Sync.FetchLimit)
	v.SetDefault("sync.batch_size", defaults.Sync.BatchSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Monitor.IntervalSec < MinMonitorIntervalSec {
		cfg.Monitor.IntervalSec = MinMonitorIntervalSec
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = defaults.Sync.BatchSize
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("db_path", cfg.DBPath)
	v.Set("attachment_dir", cfg.AttachmentDir)
	v.Set("monitor", cfg.Monitor)
	v.Set("sync", cfg.Sync)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
