package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Storage   StorageConfig   `mapstructure:"storage"`
	History   HistoryConfig   `mapstructure:"history"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string   `mapstructure:"host_port"`
	Namespace string   `mapstructure:"namespace"`
	TaskQueue string   `mapstructure:"task_queue"`
	Cron      string   `mapstructure:"cron"`
	Keys      []string `mapstructure:"keys"`
}

// Storage backends for the anchor history and the privacy consent flag.
const (
	BackendMemory   = "memory"
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	Key      string        `mapstructure:"key"`
	Limit    int           `mapstructure:"limit"`
	Eviction string        `mapstructure:"eviction"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

type TrackingConfig struct {
	HeadingAccuracyThreshold    float64       `mapstructure:"heading_accuracy_threshold"`
	HorizontalAccuracyThreshold float64       `mapstructure:"horizontal_accuracy_threshold"`
	LocalizationTimeout         time.Duration `mapstructure:"localization_timeout"`
	FeatureEnableGrace          time.Duration `mapstructure:"feature_enable_grace"`
	ErrorDisplay                time.Duration `mapstructure:"error_display"`
	TickInterval                time.Duration `mapstructure:"tick_interval"`
}

type SimulatorConfig struct {
	Script string `mapstructure:"script"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOANCHOR_STORAGE_BACKEND → storage.backend
	v.SetEnvPrefix("GEOANCHOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "geoanchor")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "geoanchor")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "geoanchor-retention")
	v.SetDefault("temporal.cron", "5 0 * * *")
	v.SetDefault("temporal.keys", []string{"PersistentGeospatialAnchors"})
	v.SetDefault("storage.backend", BackendValkey)
	v.SetDefault("storage.timeout", 2*time.Second)
	v.SetDefault("history.key", "PersistentGeospatialAnchors")
	v.SetDefault("history.limit", 5)
	v.SetDefault("history.eviction", "calendar_day")
	v.SetDefault("history.max_age", 24*time.Hour)
	v.SetDefault("tracking.heading_accuracy_threshold", 25.0)
	v.SetDefault("tracking.horizontal_accuracy_threshold", 20.0)
	v.SetDefault("tracking.localization_timeout", 180*time.Second)
	v.SetDefault("tracking.feature_enable_grace", 3*time.Second)
	v.SetDefault("tracking.error_display", 3*time.Second)
	v.SetDefault("tracking.tick_interval", 100*time.Millisecond)
	v.SetDefault("simulator.script", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendValkey:
		if c.Valkey.Addr == "" {
			errs = append(errs, "valkey.addr is required for the valkey backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required for the postgres backend")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required for the postgres backend")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required for the postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be memory, valkey or postgres, got %q", c.Storage.Backend))
	}
	if c.Storage.Timeout < 0 {
		errs = append(errs, "storage.timeout must not be negative")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}

	if c.History.Key == "" {
		errs = append(errs, "history.key is required")
	}
	if c.History.Limit <= 0 {
		errs = append(errs, fmt.Sprintf("history.limit must be positive, got %d", c.History.Limit))
	}
	if c.History.Eviction != "calendar_day" && c.History.Eviction != "rolling" {
		errs = append(errs, fmt.Sprintf("history.eviction must be calendar_day or rolling, got %q", c.History.Eviction))
	}
	if c.History.Eviction == "rolling" && c.History.MaxAge <= 0 {
		errs = append(errs, "history.max_age must be positive for rolling eviction")
	}

	if c.Tracking.HeadingAccuracyThreshold <= 0 {
		errs = append(errs, "tracking.heading_accuracy_threshold must be positive")
	}
	if c.Tracking.HorizontalAccuracyThreshold <= 0 {
		errs = append(errs, "tracking.horizontal_accuracy_threshold must be positive")
	}
	if c.Tracking.LocalizationTimeout <= 0 {
		errs = append(errs, "tracking.localization_timeout must be positive")
	}
	if c.Tracking.FeatureEnableGrace < 0 {
		errs = append(errs, "tracking.feature_enable_grace must not be negative")
	}
	if c.Tracking.TickInterval <= 0 {
		errs = append(errs, "tracking.tick_interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
