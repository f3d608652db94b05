package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// BackendConfig holds the connection settings for the Taskeer backend.
type BackendConfig struct {
	// APIBaseURL is the root of the notification REST API.
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`

	// SSEURL is the event-stream endpoint.
	SSEURL string `mapstructure:"sse_url" yaml:"sse_url"`

	// RequestTimeoutSec bounds every REST call.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`

	// RefreshIntervalSec is how often the full snapshot is re-fetched
	// to catch events the live channel missed. Zero disables it.
	RefreshIntervalSec int `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
}

// StreamConfig holds the reconnection policy for the live event channel.
type StreamConfig struct {
	// MaxReconnectAttempts caps automatic reconnects; after the cap the
	// channel stays down until an explicit reconnect.
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`

	// ReconnectBaseMS is the first backoff delay in milliseconds.
	ReconnectBaseMS int `mapstructure:"reconnect_base_ms" yaml:"reconnect_base_ms"`

	// ReconnectMaxMS caps the backoff delay in milliseconds.
	ReconnectMaxMS int `mapstructure:"reconnect_max_ms" yaml:"reconnect_max_ms"`

	// TokenPollAttempts and TokenPollIntervalSec bound the wait for an
	// auth token to appear before the first connect.
	TokenPollAttempts    int `mapstructure:"token_poll_attempts" yaml:"token_poll_attempts"`
	TokenPollIntervalSec int `mapstructure:"token_poll_interval_sec" yaml:"token_poll_interval_sec"`
}

// StorageConfig holds local persistence paths.
type StorageConfig struct {
	DBPath  string `mapstructure:"db_path" yaml:"db_path"`
	LogPath string `mapstructure:"log_path" yaml:"log_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Stream  StreamConfig  `mapstructure:"stream" yaml:"stream"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskeer/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskeer", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		Backend: BackendConfig{
			APIBaseURL:         "http://localhost:3000/api/compartir/notificaciones",
			SSEURL:             "http://localhost:3000/api/sse/notificaciones",
			RequestTimeoutSec:  30,
			RefreshIntervalSec: 300,
		},
		Stream: StreamConfig{
			MaxReconnectAttempts: 5,
			ReconnectBaseMS:      1000,
			ReconnectMaxMS:       30000,
			TokenPollAttempts:    10,
			TokenPollIntervalSec: 1,
		},
		Storage: StorageConfig{
			DBPath:  filepath.Join(home, ".config", "taskeer", "notifications.db"),
			LogPath: filepath.Join(home, ".config", "taskeer", "taskeer-notify.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()
	v.SetDefault("backend.api_base_url", defaults.Backend.APIBaseURL)
	v.SetDefault("backend.sse_url", defaults.Backend.SSEURL)
	v.SetDefault("backend.request_timeout_sec", defaults.Backend.RequestTimeoutSec)
	v.SetDefault("backend.refresh_interval_sec", defaults.Backend.RefreshIntervalSec)
	v.SetDefault("stream.max_reconnect_attempts", defaults.Stream.MaxReconnectAttempts)
	v.SetDefault("stream.reconnect_base_ms", defaults.Stream.ReconnectBaseMS)
	v.SetDefault("stream.reconnect_max_ms", defaults.Stream.ReconnectMaxMS)
	v.SetDefault("stream.token_poll_attempts", defaults.Stream.TokenPollAttempts)
	v.SetDefault("stream.token_poll_interval_sec", defaults.Stream.TokenPollIntervalSec)
	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
	v.SetDefault("storage.log_path", defaults.Storage.LogPath)

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

	v.Set("backend", cfg.Backend)
	v.Set("stream", cfg.Stream)
	v.Set("storage", cfg.Storage)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
