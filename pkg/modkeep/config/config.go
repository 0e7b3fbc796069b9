package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/modkeep/pkg/modkeep/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Console    string            `mapstructure:"console"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	ModsRoot     string   `mapstructure:"mods_root"`
	Objects      []string `mapstructure:"objects"`
	SettingsFile string   `mapstructure:"settings_file"`
	KeySwap      struct {
		Lookahead int `mapstructure:"lookahead"`
	} `mapstructure:"keyswap"`
	Watcher struct {
		PairWindow time.Duration `mapstructure:"pair_window"`
		Settle     time.Duration `mapstructure:"settle"`
	} `mapstructure:"watcher"`
	Archive struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"archive"`
	History struct {
		Enabled       bool   `mapstructure:"enabled"`
		Path          string `mapstructure:"path"`
		RetentionDays int    `mapstructure:"retention_days"`
	} `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// New returns a viper instance with modkeep's search paths, environment
// binding and defaults applied. Callers may bind flags to it before Load.
func New() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "modkeep"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "modkeep"))

	v.SetEnvPrefix("MODKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mods_root", DefaultModsRoot)
	v.SetDefault("objects", []string{})
	v.SetDefault("settings_file", DefaultSettingsFile)
	v.SetDefault("keyswap.lookahead", DefaultLookahead)
	v.SetDefault("watcher.pair_window", DefaultPairWindow)
	v.SetDefault("watcher.settle", DefaultSettle)
	v.SetDefault("archive.path", "") // Empty means DefaultArchivePath
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means DefaultHistoryDir
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"repository": "info",
		"bridge":     "info",
		"watcher":    "warn",
		"keyswap":    "info",
	})

	return v, nil
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/modkeep/config.yaml
//   - $HOME/.config/modkeep/config.yaml
//
// Environment variables are prefixed with MODKEEP_ (e.g., MODKEEP_MODS_ROOT).
func Load() (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper reads the config file (if any) into v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	cfg.ModsRoot, err = ExpandPath(cfg.ModsRoot)
	if err != nil {
		return nil, err
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryDir()
	}
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = DefaultArchivePath()
	}
	if cfg.Archive.Path, err = ExpandPath(cfg.Archive.Path); err != nil {
		return nil, err
	}
	if cfg.KeySwap.Lookahead <= 0 {
		cfg.KeySwap.Lookahead = DefaultLookahead
	}

	return &cfg, nil
}

// LoggingOptions converts the logging section into a logging.Config.
func (c *Config) LoggingOptions() (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if c.Logging.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size %q: %w", c.Logging.Rotation.MaxSize, err)
		}
		rotation.MaxSize = int64(size)
	}
	rotation.MaxAge = c.Logging.Rotation.MaxAge
	rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	rotation.Daily = c.Logging.Rotation.Daily

	path := c.Logging.Path
	if path == "" {
		path = DefaultLogPath()
	}

	return logging.Config{
		Level:        c.Logging.Level,
		Path:         path,
		Rotation:     rotation,
		Components:   c.Logging.Components,
		ConsoleLevel: c.Logging.Console,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "modkeep"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "modkeep"), nil
}

// ConfigPath returns the path of the main config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# modkeep configuration

# Folder holding one subfolder per moddable object (character)
mods_root: %s

# Objects whose folders are managed even before they exist on disk
objects: []

# Per-mod settings sidecar file name
settings_file: %s

keyswap:
  # Meaningful lines scanned below a section header
  lookahead: %d

watcher:
  # Window for pairing a rename with its create notification
  pair_window: %s
  # Quiet period after a self-initiated change
  settle: %s

archive:
  # Archive cache database (empty means $XDG_DATA_HOME/modkeep/archives)
  path: ""

history:
  enabled: true
  # Empty means $XDG_DATA_HOME/modkeep/history
  path: ""
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/modkeep/modkeep.log)
  path: ""
  # Also log to stderr at this level (empty disables)
  console: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    repository: info
    bridge: info
    watcher: warn
    keyswap: info
`, DefaultModsRoot, DefaultSettingsFile, DefaultLookahead, DefaultPairWindow, DefaultSettle, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/modkeep/ for the archive cache and history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "modkeep")
}

// StateDir returns $XDG_STATE_HOME/modkeep/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "modkeep")
}

// CacheDir returns $XDG_CACHE_HOME/modkeep/.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "modkeep")
}

// DefaultArchivePath returns the default archive cache database path.
func DefaultArchivePath() string {
	return filepath.Join(DataDir(), "archives")
}

// DefaultHistoryDir returns the default history directory.
func DefaultHistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "modkeep.log")
}
