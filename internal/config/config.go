// Package config provides configuration loading and validation for the placement service and CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. PLACEMENT_NOTIFY_WORKERS.
const EnvPrefix = "PLACEMENT"

// Notify modes
const (
	NotifyModeLog    = "log"
	NotifyModeOutbox = "outbox"
)

// Config is the service configuration. Values come from defaults, an optional JSON or YAML
// file, then environment variables, in increasing precedence.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	Port        int    `mapstructure:"port"`

	LogJSON bool `mapstructure:"log_json"`
	Debug   bool `mapstructure:"debug"`

	// Statuses is the allow-list of result labels. Empty accepts any non-blank label.
	Statuses []string `mapstructure:"statuses"`

	Notify NotifyConfig `mapstructure:"notify"`
	Bulk   BulkConfig   `mapstructure:"bulk"`
}

// NotifyConfig tunes notification delivery.
type NotifyConfig struct {
	// Mode selects the notifier: "log" writes to the service log, "outbox" to the database.
	Mode          string        `mapstructure:"mode"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

// BulkConfig tunes bulk result ingestion and retraction.
type BulkConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxIdentifiers int           `mapstructure:"max_identifiers"`
	NotifyWait     time.Duration `mapstructure:"notify_wait"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:     8080,
		Statuses: []string{"Qualified", "Rejected", "On Hold", "Selected"},
		Notify: NotifyConfig{
			Mode:      NotifyModeLog,
			Workers:   4,
			QueueSize: 1024,
			Timeout:   5 * time.Second,
		},
		Bulk: BulkConfig{
			Concurrency:    8,
			MaxIdentifiers: 5000,
			NotifyWait:     10 * time.Second,
		},
	}
}

// Load reads configuration. path may be empty, in which case only defaults and the
// environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}
	if err := v.BindEnv("port", EnvPrefix+"_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("failed to bind PORT: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Statuses = cleanStatuses(cfg.Statuses)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("database_url", d.DatabaseURL)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("statuses", d.Statuses)

	v.SetDefault("notify.mode", d.Notify.Mode)
	v.SetDefault("notify.workers", d.Notify.Workers)
	v.SetDefault("notify.queue_size", d.Notify.QueueSize)
	v.SetDefault("notify.timeout", d.Notify.Timeout)
	v.SetDefault("notify.rate_per_second", d.Notify.RatePerSecond)
	v.SetDefault("notify.burst", d.Notify.Burst)

	v.SetDefault("bulk.concurrency", d.Bulk.Concurrency)
	v.SetDefault("bulk.max_identifiers", d.Bulk.MaxIdentifiers)
	v.SetDefault("bulk.notify_wait", d.Bulk.NotifyWait)
}

func cleanStatuses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that the configuration has valid values.
// DatabaseURL is not checked here; commands that need the database check it themselves.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535")
	}

	switch c.Notify.Mode {
	case NotifyModeLog, NotifyModeOutbox:
	default:
		return fmt.Errorf("config error: 'notify.mode' must be %q or %q, got %q", NotifyModeLog, NotifyModeOutbox, c.Notify.Mode)
	}
	if c.Notify.Workers <= 0 {
		return fmt.Errorf("config error: 'notify.workers' must be positive")
	}
	if c.Notify.QueueSize < 0 {
		return fmt.Errorf("config error: 'notify.queue_size' must be non-negative")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("config error: 'notify.timeout' must be positive")
	}
	if c.Notify.RatePerSecond < 0 {
		return fmt.Errorf("config error: 'notify.rate_per_second' must be non-negative")
	}

	if c.Bulk.Concurrency <= 0 {
		return fmt.Errorf("config error: 'bulk.concurrency' must be positive")
	}
	if c.Bulk.MaxIdentifiers < 0 {
		return fmt.Errorf("config error: 'bulk.max_identifiers' must be non-negative")
	}
	if c.Bulk.NotifyWait <= 0 {
		return fmt.Errorf("config error: 'bulk.notify_wait' must be positive")
	}

	return nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("config error: database URL is required (set DATABASE_URL or %s_DATABASE_URL)", EnvPrefix)
	}
	return nil
}
