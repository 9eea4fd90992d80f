package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Remote    RemoteConfig     `yaml:"remote"`
	Sync      SyncConfig       `yaml:"sync"`
	Redis     RedisConfig      `yaml:"redis"`
	MySQL     MySQLConfig      `yaml:"mysql"`
	Queue     QueueConfig      `yaml:"queue"`
	Logger    LoggerConfig     `yaml:"logger"`
	Providers *ProvidersConfig `yaml:"providers,omitempty"` // Providers configuration (optional)
}

// ServerConfig renderer-facing API server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for renderer requests (optional, if empty, auth is disabled)
}

// RemoteConfig remote queue configuration
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"`   // REST API root, e.g. http://127.0.0.1:8188
	EventsURL string        `yaml:"events_url"` // WebSocket event stream; derived from base_url when empty
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"` // Per-request timeout
}

// SyncConfig synchronization configuration
type SyncConfig struct {
	PanelID         string        `yaml:"panel_id"`         // Preference key of this panel
	PageSize        int           `yaml:"page_size"`        // History page size
	SortField       string        `yaml:"sort_field"`       // Remote sort field
	Direction       string        `yaml:"direction"`        // asc, desc
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Periodic refresh interval
	LockWindow      time.Duration `yaml:"lock_window"`      // Refresh suppression after a user interaction
	RowHeight       float64       `yaml:"row_height"`       // Layout row height used by the render adapter
	ViewportHeight  float64       `yaml:"viewport_height"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// QueueConfig asynq intent queue configuration
type QueueConfig struct {
	Name     string `yaml:"name"`      // asynq queue the intents are enqueued on
	MaxRetry int    `yaml:"max_retry"` // maximum retry count
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate after this size, 0 means 100MB
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept, 0 keeps all
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ProvidersConfig providers configuration
type ProvidersConfig struct {
	History     string `yaml:"history"`     // History and snapshot source: remote, mysql
	Events      string `yaml:"events"`      // Event source: websocket, none
	Intents     string `yaml:"intents"`     // Intent sink: remote, asynq
	Preferences string `yaml:"preferences"` // Preference store: redis
}

// DefaultSyncConfig returns the sync defaults
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PanelID:         "default",
		PageSize:        50,
		SortField:       "completed_at",
		Direction:       "desc",
		RefreshInterval: 5 * time.Second,
		LockWindow:      2 * time.Second,
		RowHeight:       32,
		ViewportHeight:  640,
	}
}

// DefaultRemoteConfig returns the remote defaults
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL: "http://127.0.0.1:8188",
		Timeout: 10 * time.Second,
	}
}

// DefaultProvidersConfig returns the provider defaults
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		History:     "remote",
		Events:      "websocket",
		Intents:     "remote",
		Preferences: "redis",
	}
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	validateAndApplyDefaults(&cfg)
	return &cfg, nil
}

// validateAndApplyDefaults replaces missing or invalid values with defaults
func validateAndApplyDefaults(cfg *Config) {
	syncDefaults := DefaultSyncConfig()
	s := &cfg.Sync
	if s.PanelID == "" {
		s.PanelID = syncDefaults.PanelID
	}
	if s.PageSize <= 0 {
		s.PageSize = syncDefaults.PageSize
	}
	if s.SortField == "" {
		s.SortField = syncDefaults.SortField
	}
	if s.Direction != "asc" && s.Direction != "desc" {
		s.Direction = syncDefaults.Direction
	}
	if s.RefreshInterval <= 0 {
		s.RefreshInterval = syncDefaults.RefreshInterval
	}
	if s.LockWindow <= 0 {
		s.LockWindow = syncDefaults.LockWindow
	}
	if s.RowHeight <= 0 {
		s.RowHeight = syncDefaults.RowHeight
	}
	if s.ViewportHeight <= 0 {
		s.ViewportHeight = syncDefaults.ViewportHeight
	}

	remoteDefaults := DefaultRemoteConfig()
	if cfg.Remote.BaseURL == "" {
		cfg.Remote.BaseURL = remoteDefaults.BaseURL
	}
	if cfg.Remote.Timeout <= 0 {
		cfg.Remote.Timeout = remoteDefaults.Timeout
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "panel-intents"
	}
	if cfg.Queue.MaxRetry < 0 {
		cfg.Queue.MaxRetry = 0
	}

	providerDefaults := DefaultProvidersConfig()
	if cfg.Providers == nil {
		cfg.Providers = &providerDefaults
		return
	}
	if cfg.Providers.History == "" {
		cfg.Providers.History = providerDefaults.History
	}
	if cfg.Providers.Events == "" {
		cfg.Providers.Events = providerDefaults.Events
	}
	if cfg.Providers.Intents == "" {
		cfg.Providers.Intents = providerDefaults.Intents
	}
	if cfg.Providers.Preferences == "" {
		cfg.Providers.Preferences = providerDefaults.Preferences
	}
}
