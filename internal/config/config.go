// Package config handles courier configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for courier.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Server settings (the store daemon the client talks to)
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Identity settings
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`

	// Sync settings (polling cadence of the client engine)
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Daemon settings (only used by courierd)
	Daemon DaemonConfig `yaml:"daemon" mapstructure:"daemon"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global courier settings.
type GlobalConfig struct {
	// DataDir is where courier stores its data (default: ~/.local/share/courier).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/courier).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// ServerConfig contains settings for reaching the store daemon.
type ServerConfig struct {
	// Addr is the daemon address in host:port form.
	Addr string `yaml:"addr" mapstructure:"addr"`

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// IdentityConfig contains local keypair settings.
type IdentityConfig struct {
	// KeyPath is the identity key file path (default: DataDir/identity.pem).
	KeyPath string `yaml:"key_path" mapstructure:"key_path"`
}

// SyncConfig contains the polling cadence of the client engine.
type SyncConfig struct {
	// ChatListInterval is how often the chat list is refetched.
	ChatListInterval time.Duration `yaml:"chat_list_interval" mapstructure:"chat_list_interval"`

	// MessagesInterval is how often open threads are refetched.
	MessagesInterval time.Duration `yaml:"messages_interval" mapstructure:"messages_interval"`

	// UnreadInterval is how often unread counts are refetched.
	UnreadInterval time.Duration `yaml:"unread_interval" mapstructure:"unread_interval"`

	// ProfileStaleness is how long a fetched peer profile stays fresh.
	ProfileStaleness time.Duration `yaml:"profile_staleness" mapstructure:"profile_staleness"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DaemonConfig contains courierd settings.
type DaemonConfig struct {
	// Listen is the address courierd binds.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// DatabasePath is the sqlite store file (default: DataDir/store.db).
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows message timestamps in the UI.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "courier"),
			ConfigDir: filepath.Join(homeDir, ".config", "courier"),
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:7474",
			DialTimeout: 5 * time.Second,
		},
		Identity: IdentityConfig{
			KeyPath: "", // Will be set to DataDir/identity.pem
		},
		Sync: SyncConfig{
			ChatListInterval: 5 * time.Second,
			MessagesInterval: 3 * time.Second,
			UnreadInterval:   5 * time.Second,
			ProfileStaleness: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Daemon: DaemonConfig{
			Listen:       "127.0.0.1:7474",
			DatabasePath: "", // Will be set to DataDir/store.db
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Sync.ChatListInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.chat_list_interval must be at least 100ms")
	}
	if c.Sync.MessagesInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.messages_interval must be at least 100ms")
	}
	if c.Sync.UnreadInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.unread_interval must be at least 100ms")
	}
	if c.Sync.ProfileStaleness < time.Second {
		return fmt.Errorf("sync.profile_staleness must be at least 1s")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// IdentityKeyPath returns the full identity key file path.
func (c *Config) IdentityKeyPath() string {
	if c.Identity.KeyPath != "" {
		return c.Identity.KeyPath
	}
	return filepath.Join(c.Global.DataDir, "identity.pem")
}

// DatabasePath returns the full daemon database path.
func (c *Config) DatabasePath() string {
	if c.Daemon.DatabasePath != "" {
		return c.Daemon.DatabasePath
	}
	return filepath.Join(c.Global.DataDir, "store.db")
}
