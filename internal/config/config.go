// Package config loads and persists linkhoard settings.
//
// Settings come from three layers, later winning: built-in defaults, the
// YAML config file, and LINKHOARD_* environment variables. The sync
// strategy preference (immediate_sync) is read through a live accessor so a
// change written by `lh config set` takes effect without restarting a
// running daemon.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default values applied before the file and environment are read.
const (
	DefaultAPIBaseURL       = "https://api.raindrop.io/rest/v1"
	DefaultAutoPushInterval = 5 * time.Minute
	DefaultDashboardPort    = 7317
)

// Config holds the resolved settings.
type Config struct {
	// DatabasePath is the SQLite file holding the local store.
	DatabasePath string `mapstructure:"database_path"`

	// APIBaseURL is the remote bookmark service endpoint.
	APIBaseURL string `mapstructure:"api_base_url"`

	// APIToken authenticates against the remote service.
	APIToken string `mapstructure:"api_token"`

	// ImmediateSync selects the sync strategy: true pushes each mutation
	// synchronously, false queues changes for a manual push.
	ImmediateSync bool `mapstructure:"immediate_sync"`

	// ImportDir is the drop directory watched by the daemon.
	ImportDir string `mapstructure:"import_dir"`

	// LogFile, when set, routes logs to a rotated file instead of stderr.
	LogFile string `mapstructure:"log_file"`

	// AutoPushInterval is the daemon's pending-set upload period.
	AutoPushInterval time.Duration `mapstructure:"auto_push_interval"`

	// DashboardPort is the WebSocket dashboard listen port.
	DashboardPort int `mapstructure:"dashboard_port"`
}

// Loader reads, watches, and writes the config file.
type Loader struct {
	v   *viper.Viper
	dir string
}

// DefaultDir returns the per-user config directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(base, "linkhoard"), nil
}

// NewLoader prepares a loader rooted at dir. An empty dir selects the
// per-user default.
func NewLoader(dir string) (*Loader, error) {
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("linkhoard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_path", filepath.Join(dir, "linkhoard.db"))
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("api_token", "")
	v.SetDefault("immediate_sync", false)
	v.SetDefault("import_dir", filepath.Join(dir, "import"))
	v.SetDefault("log_file", "")
	v.SetDefault("auto_push_interval", DefaultAutoPushInterval)
	v.SetDefault("dashboard_port", DefaultDashboardPort)

	return &Loader{v: v, dir: dir}, nil
}

// Load reads the config file and environment into a Config. A missing file
// is not an error; defaults apply.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Set updates one key and persists the file, creating it if needed.
func (l *Loader) Set(key string, value interface{}) error {
	if !validKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	l.v.Set(key, value)

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(l.dir, "config.yaml")
	if err := l.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns one key's resolved value.
func (l *Loader) Get(key string) (interface{}, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return l.v.Get(key), nil
}

// Keys lists the known config keys.
func Keys() []string {
	return []string{
		"database_path",
		"api_base_url",
		"api_token",
		"immediate_sync",
		"import_dir",
		"log_file",
		"auto_push_interval",
		"dashboard_port",
	}
}

func validKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Dir returns the config directory in use.
func (l *Loader) Dir() string {
	return l.dir
}

// ImmediateSync re-reads the strategy preference from disk, so a settings
// change made while a process is running is picked up on the next mutation.
func (l *Loader) ImmediateSync() bool {
	fresh := viper.New()
	fresh.SetConfigName("config")
	fresh.SetConfigType("yaml")
	fresh.AddConfigPath(l.dir)
	if err := fresh.ReadInConfig(); err != nil {
		return l.v.GetBool("immediate_sync")
	}
	return fresh.GetBool("immediate_sync")
}

// NewLogger builds the process logger per the config. With a log_file set,
// output goes to a size-rotated file; otherwise stderr.
func NewLogger(cfg *Config, prefix string) *log.Logger {
	if cfg.LogFile == "" {
		return log.New(os.Stderr, prefix, log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}, prefix, log.LstdFlags)
}
