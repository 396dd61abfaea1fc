package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/messaging/redis"
	"github.com/jwalitptl/wellness-api/pkg/worker"
)

// EnvPrefix prefixes every environment override, e.g. WELLNESS_DB_HOST.
const EnvPrefix = "WELLNESS"

const (
	DriverPostgres = "postgres"
	DriverREST     = "rest"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" envconfig:"SERVER"`
	Database  DatabaseConfig  `mapstructure:"database" envconfig:"DB"`
	Datastore DatastoreConfig `mapstructure:"datastore" envconfig:"DATASTORE"`
	Redis     RedisConfig     `mapstructure:"redis" envconfig:"REDIS"`
	Auth      AuthConfig      `mapstructure:"auth" envconfig:"AUTH"`
	Cache     CacheConfig     `mapstructure:"cache" envconfig:"CACHE"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Log       LogConfig       `mapstructure:"log" envconfig:"LOG"`
	Outbox    OutboxConfig    `mapstructure:"outbox" envconfig:"OUTBOX"`
	SMTP      SMTPConfig      `mapstructure:"smtp" envconfig:"SMTP"`
	Notify    NotifyConfig    `mapstructure:"notify" envconfig:"NOTIFY"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" envconfig:"PORT"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	// RequestTimeout bounds each handler's context.
	RequestTimeout time.Duration `mapstructure:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	Mode           string        `mapstructure:"mode" envconfig:"MODE"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"HOST"`
	Port     int    `mapstructure:"port" envconfig:"PORT"`
	User     string `mapstructure:"user" envconfig:"USER"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"NAME"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"SSLMODE"`
	MaxConns int    `mapstructure:"max_conns" envconfig:"MAX_CONNS"`
	MaxIdle  int    `mapstructure:"max_idle" envconfig:"MAX_IDLE"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// DatastoreConfig selects where patient, intake and protocol data lives.
type DatastoreConfig struct {
	Driver string     `mapstructure:"driver" envconfig:"DRIVER"`
	REST   RESTConfig `mapstructure:"rest" envconfig:"REST"`
}

// RESTConfig points at a hosted PostgREST-compatible API.
type RESTConfig struct {
	URL        string        `mapstructure:"url" envconfig:"URL"`
	APIKey     string        `mapstructure:"api_key" envconfig:"API_KEY"`
	Timeout    time.Duration `mapstructure:"timeout" envconfig:"TIMEOUT"`
	RetryCount int           `mapstructure:"retry_count" envconfig:"RETRY_COUNT"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"URL"`
	Channel      string        `mapstructure:"channel" envconfig:"CHANNEL"`
	MaxRetries   int           `mapstructure:"max_retries" envconfig:"MAX_RETRIES"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" envconfig:"RETRY_BACKOFF"`
	PoolSize     int           `mapstructure:"pool_size" envconfig:"POOL_SIZE"`
	MinIdleConns int           `mapstructure:"min_idle_conns" envconfig:"MIN_IDLE_CONNS"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled" envconfig:"ENABLED"`
	JWTSecret string `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
	Issuer    string `mapstructure:"issuer" envconfig:"ISSUER"`
}

type CacheConfig struct {
	PatientsTTL     time.Duration `mapstructure:"patients_ttl" envconfig:"PATIENTS_TTL"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" envconfig:"CLEANUP_INTERVAL"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"ENABLED"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"RPS"`
	Burst             int     `mapstructure:"burst" envconfig:"BURST"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL"`
	Format string `mapstructure:"format" envconfig:"FORMAT"`
	// File enables rotated file output in addition to stdout.
	File       string `mapstructure:"file" envconfig:"FILE"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `mapstructure:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int    `mapstructure:"max_age_days" envconfig:"MAX_AGE_DAYS"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" envconfig:"BATCH_SIZE"`
	PollInterval  time.Duration `mapstructure:"poll_interval" envconfig:"POLL_INTERVAL"`
	RetryAttempts int           `mapstructure:"retry_attempts" envconfig:"RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" envconfig:"RETRY_DELAY"`
	RetentionDays int           `mapstructure:"retention_days" envconfig:"RETENTION_DAYS"`
	// HealthPort serves the worker's probes and metrics.
	HealthPort int `mapstructure:"health_port" envconfig:"HEALTH_PORT"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"HOST"`
	Port     int    `mapstructure:"port" envconfig:"PORT"`
	Username string `mapstructure:"username" envconfig:"USERNAME"`
	Password string `mapstructure:"password" envconfig:"PASSWORD"`
	From     string `mapstructure:"from" envconfig:"FROM"`
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type NotifyConfig struct {
	To []string `mapstructure:"to" envconfig:"TO"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "wellness")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_idle", 5)

	v.SetDefault("datastore.driver", DriverPostgres)
	v.SetDefault("datastore.rest.timeout", 10*time.Second)
	v.SetDefault("datastore.rest.retry_count", 2)

	v.SetDefault("redis.channel", "wellness.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.issuer", "wellness-admin")

	v.SetDefault("cache.patients_ttl", 30*time.Second)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 2*time.Second)
	v.SetDefault("outbox.retention_days", 30)
	v.SetDefault("outbox.health_port", 8081)

	v.SetDefault("smtp.port", 587)
}

// LoadConfig reads config.yml from the given directories (or the usual locations),
// then applies WELLNESS_* environment overrides. A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

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

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the selected components have what they need.
func (c *Config) Validate() error {
	var problems []string

	switch c.Datastore.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			problems = append(problems, "database.host and database.name are required for the postgres driver")
		}
	case DriverREST:
		if c.Datastore.REST.URL == "" {
			problems = append(problems, "datastore.rest.url is required for the rest driver")
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown datastore.driver %q", c.Datastore.Driver))
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required when auth is enabled")
	}
	if c.Server.Port <= 0 {
		problems = append(problems, "server.port must be positive")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (c *OutboxConfig) ToWorkerConfig(channel string) worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		Channel:       channel,
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		Retention:     time.Duration(c.RetentionDays) * 24 * time.Hour,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *LogConfig) ToLoggerConfig(service string) *logger.Config {
	return &logger.Config{
		Level:      c.Level,
		Console:    c.Format == "console",
		Service:    service,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
