package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Logging       LoggingConfig       `toml:"logging"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DataDir        string `toml:"data_dir"`
	SingleInstance bool   `toml:"single_instance"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds web API settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// ScheduleConfig holds cron expressions that start a focus phase
type ScheduleConfig struct {
	Focus []string `toml:"focus"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DataDir:        filepath.Join(home, ".fiztarefa"),
			SingleInstance: true,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
		Web: WebConfig{
			Port: 8787,
			Host: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
		return nil, fmt.Errorf("web.port %d out of range", cfg.Web.Port)
	}

	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DatabasePath is the SQLite file holding tasks, lists and timer state
func (c *Config) DatabasePath() string {
	return filepath.Join(c.General.DataDir, "fiztarefa.db")
}

// SettingsPath is the YAML file holding the user's timer settings
func (c *Config) SettingsPath() string {
	return filepath.Join(c.General.DataDir, "settings.yaml")
}

// LogPath is where the terminal UI writes its log
func (c *Config) LogPath() string {
	return filepath.Join(c.General.DataDir, "tui.log")
}

// WebAddr is the host:port the web API listens on
func (c *Config) WebAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fiztarefa", "config.toml")
}
