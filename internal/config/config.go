package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"environment"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
	LogMaxAgeDays int    `toml:"log_max_age_days"`

	// postgres, the password comes from PROGRESSION_DB_PASS
	PostgresHost            string   `toml:"postgres_host"`
	PostgresPort            string   `toml:"postgres_port"`
	PostgresDBName          string   `toml:"postgres_db_name"`
	PostgresUser            string   `toml:"postgres_user"`
	PostgresMaxConns        int32    `toml:"postgres_max_conns"`
	PostgresMinConns        int32    `toml:"postgres_min_conns"`
	PostgresMaxConnIdleTime Duration `toml:"postgres_max_conn_idle_time"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// progression
	Timezone           string   `toml:"timezone"`
	StoreTimeout       Duration `toml:"store_timeout"`
	CommandsPerMinute  int      `toml:"commands_per_minute"`
	ProgramCacheSizeMB int      `toml:"program_cache_size_mb"`
	SummaryCacheTTL    Duration `toml:"summary_cache_ttl"`
	AllowedOrigins     []string `toml:"allowed_origins"`
}

// Duration lets TOML values like "5s" decode into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

func Load(env, configPath string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(configPath, &t); err != nil {
		return nil, fmt.Errorf("decode toml [%s]: %w", configPath, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone [%s]: %w", cfg.Timezone, err)
	}
	if cfg.PostgresMaxConns < 0 || cfg.PostgresMinConns < 0 {
		return nil, fmt.Errorf("postgres pool sizes cannot be negative: max %d, min %d", cfg.PostgresMaxConns, cfg.PostgresMinConns)
	}
	if cfg.PostgresMaxConns > 0 && cfg.PostgresMinConns > cfg.PostgresMaxConns {
		return nil, fmt.Errorf("postgres_min_conns %d exceeds postgres_max_conns %d", cfg.PostgresMinConns, cfg.PostgresMaxConns)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.StoreTimeout.Duration <= 0 {
		c.StoreTimeout.Duration = 5 * time.Second
	}
	if c.CommandsPerMinute <= 0 {
		c.CommandsPerMinute = 120
	}
	if c.ProgramCacheSizeMB <= 0 {
		c.ProgramCacheSizeMB = 16
	}
	if c.SummaryCacheTTL.Duration <= 0 {
		c.SummaryCacheTTL.Duration = 10 * time.Minute
	}
}
