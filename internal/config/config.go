package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// login throttling
	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`
	LoginMaxFailedAttempts      int `toml:"login_max_failed_attempts"`
	LoginLockoutMinutes         int `toml:"login_lockout_minutes"`

	// auth sessions
	SessionTTLDays int `toml:"session_ttl_days"`
}

const (
	DefaultLoginMaxFailedAttempts = 5
	DefaultLoginLockoutMinutes    = 15
	DefaultSessionTTLDays         = 30
)

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	tomlBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var tomlConfig Toml
	if err := toml.Unmarshal(tomlBytes, &tomlConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	cfg, err := tomlConfig.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	cfg.Environment = env
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LoginMaxFailedAttempts <= 0 {
		c.LoginMaxFailedAttempts = DefaultLoginMaxFailedAttempts
	}
	if c.LoginLockoutMinutes <= 0 {
		c.LoginLockoutMinutes = DefaultLoginLockoutMinutes
	}
	if c.SessionTTLDays <= 0 {
		c.SessionTTLDays = DefaultSessionTTLDays
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
}

func (c *Config) LoginLockoutDuration() time.Duration {
	return time.Duration(c.LoginLockoutMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}
