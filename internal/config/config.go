// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/overall-progress/internal/client"
	"github.com/JakeFAU/overall-progress/internal/poller"
	"github.com/JakeFAU/overall-progress/internal/status"
)

// EnvPrefix prefixes every environment override, e.g. PROGRESS_POLLER_BASE_URL.
const EnvPrefix = "PROGRESS"

// View kinds accepted by view.kind.
const (
	ViewTerminal = "terminal"
	ViewBrowser  = "browser"
	ViewMemory   = "memory"
)

// Config captures all watcher configuration knobs loaded via Viper.
type Config struct {
	Poller   PollerConfig   `mapstructure:"poller"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	View     ViewConfig     `mapstructure:"view"`
	Server   ServerConfig   `mapstructure:"server"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PollerConfig controls what is polled and how often.
type PollerConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Path            string        `mapstructure:"path"`
	Interval        time.Duration `mapstructure:"interval"`
	ActivityField   string        `mapstructure:"activity_field"`
	DiscardStale    bool          `mapstructure:"discard_stale"`
	PollImmediately bool          `mapstructure:"poll_immediately"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ViewConfig selects where the indicator is rendered.
type ViewConfig struct {
	Kind          string `mapstructure:"kind"`
	PageURL       string `mapstructure:"page_url"`
	TerminalWidth int    `mapstructure:"terminal_width"`
}

// ServerConfig controls the status API.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ProgressConfig sizes the poll event hub.
type ProgressConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from an optional file and the environment.
func Load(path string) (Config, error) {
	return LoadFrom(viper.New(), path)
}

// LoadFrom is Load on a caller-supplied Viper, so CLI flags bound to v take
// part in resolution.
func LoadFrom(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("poller.base_url", "http://localhost:8000")
	v.SetDefault("poller.path", client.DefaultPath)
	v.SetDefault("poller.interval", poller.DefaultInterval)
	v.SetDefault("poller.activity_field", status.FieldIsActive)
	v.SetDefault("poller.discard_stale", true)
	v.SetDefault("poller.poll_immediately", false)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("view.kind", ViewTerminal)
	v.SetDefault("view.page_url", "")
	v.SetDefault("view.terminal_width", 40)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 9090)
	v.SetDefault("progress.buffer_size", 256)
	v.SetDefault("progress.max_batch_events", 64)
	v.SetDefault("progress.flush_interval", time.Second)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := client.Endpoint(c.Poller.BaseURL, c.Poller.Path); err != nil {
		return fmt.Errorf("poller.base_url: %w", err)
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be > 0")
	}
	switch c.Poller.ActivityField {
	case status.FieldIsActive, status.FieldIsRunningOrPending:
	default:
		return fmt.Errorf("poller.activity_field must be %q or %q", status.FieldIsActive, status.FieldIsRunningOrPending)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.View.Kind {
	case ViewTerminal, ViewMemory:
	case ViewBrowser:
		if c.View.PageURL == "" {
			return fmt.Errorf("view.page_url must be set when view.kind is %q", ViewBrowser)
		}
	default:
		return fmt.Errorf("view.kind %q is not supported", c.View.Kind)
	}
	if c.View.TerminalWidth <= 0 {
		return fmt.Errorf("view.terminal_width must be > 0")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}

// ClientTimeout converts the HTTP timeout to a duration.
func (c Config) ClientTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
