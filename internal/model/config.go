package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig locates the READ-ON-ME API.
type ServerConfig struct {
	// BaseURL is the root URL of the service (e.g., http://localhost:8080).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds each REST request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// StreamConfig controls the live notification stream.
type StreamConfig struct {
	// Path is the event-stream endpoint under the base URL.
	Path string `mapstructure:"path" yaml:"path"`

	// ReconnectDelayMs is the fixed wait before reconnecting after an error.
	ReconnectDelayMs int `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
}

// CacheConfig locates the local SQLite cache.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the file logger. The terminal belongs to the UI,
// so logs never go to stdout.
type LogConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// DebugConfig holds developer-only switches.
type DebugConfig struct {
	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Stream StreamConfig `mapstructure:"stream" yaml:"stream"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Debug  DebugConfig  `mapstructure:"debug" yaml:"debug"`
}

// RequestTimeout returns the REST timeout as a duration.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSec) * time.Second
}

// ReconnectDelay returns the stream reconnect delay as a duration.
func (c *AppConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.Stream.ReconnectDelayMs) * time.Millisecond
}

// ConfigDir returns ~/.config/readonme, falling back to the working
// directory when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "readonme")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/readonme/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:    "http://localhost:8080",
			TimeoutSec: 10,
		},
		Stream: StreamConfig{
			Path:             "/api/notifications/stream",
			ReconnectDelayMs: 5000,
		},
		Cache: CacheConfig{Path: filepath.Join(dir, "cache.db")},
		Log: LogConfig{
			Path:  filepath.Join(dir, "readonme.log"),
			Level: "info",
		},
	}
}

// setDefaults mirrors defaultAppConfig into v so that partially filled
// files resolve missing keys.
func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("server.base_url", cfg.Server.BaseURL)
	v.SetDefault("server.timeout_sec", cfg.Server.TimeoutSec)
	v.SetDefault("stream.path", cfg.Stream.Path)
	v.SetDefault("stream.reconnect_delay_ms", cfg.Stream.ReconnectDelayMs)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("log.path", cfg.Log.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("debug.metrics_addr", cfg.Debug.MetricsAddr)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// READONME_* environment variables override file values (for example
// READONME_SERVER_BASE_URL). If the file does not exist, defaults apply.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("readonme")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.TimeoutSec <= 0 {
		cfg.Server.TimeoutSec = 10
	}
	if cfg.Stream.ReconnectDelayMs <= 0 {
		cfg.Stream.ReconnectDelayMs = 5000
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

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

	v.Set("server", cfg.Server)
	v.Set("stream", cfg.Stream)
	v.Set("cache", cfg.Cache)
	v.Set("log", cfg.Log)
	v.Set("debug", cfg.Debug)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
