package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	API       APIConfig
	Channel   ChannelConfig
	Lookup    LookupConfig
	Poll      PollConfig
	Redis     RedisConfig
	Records   RecordsConfig
	Database  DatabaseConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// APIConfig holds the ShipStation OData connection settings
type APIConfig struct {
	BaseURL           string
	Username          string // default credentials when a request carries none
	Password          string
	TimeoutSeconds    int
	MaxPages          int
	RequestsPerMinute int // 0 = unthrottled
}

// ChannelConfig holds the default sales channel written onto new orders.
// Hub request parameters take precedence.
type ChannelConfig struct {
	StoreID       string
	MarketplaceID string
}

// LookupConfig selects how carrier and service names are resolved
type LookupConfig struct {
	Strategy     string        // static, remote
	CacheBackend string        // none, memory, redis
	CacheTTL     time.Duration // lifetime of a cached id
}

// PollConfig selects the shipment polling watermark
type PollConfig struct {
	Watermark string        // shipdate, creation
	UTCOffset time.Duration // clock correction for the creation watermark
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RecordsConfig controls the sync record audit trail
type RecordsConfig struct {
	Enabled         bool
	Driver          string // postgres, sqlite
	SQLitePath      string
	Retention       time.Duration // 0 keeps records forever
	CleanupInterval time.Duration // how often expired records are purged
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHIPSTATION_ prefix (e.g., SHIPSTATION_API_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHIPSTATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// zero is a meaningful offset, so this one cannot go through applyDefaults
	v.SetDefault("poll.utc_offset", "-7h")
	v.SetDefault("records.enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		API: APIConfig{
			BaseURL:           v.GetString("api.base_url"),
			Username:          v.GetString("api.username"),
			Password:          v.GetString("api.password"),
			TimeoutSeconds:    v.GetInt("api.timeout_seconds"),
			MaxPages:          v.GetInt("api.max_pages"),
			RequestsPerMinute: v.GetInt("api.requests_per_minute"),
		},
		Channel: ChannelConfig{
			StoreID:       v.GetString("channel.store_id"),
			MarketplaceID: v.GetString("channel.marketplace_id"),
		},
		Lookup: LookupConfig{
			Strategy:     v.GetString("lookup.strategy"),
			CacheBackend: v.GetString("lookup.cache_backend"),
			CacheTTL:     v.GetDuration("lookup.cache_ttl"),
		},
		Poll: PollConfig{
			Watermark: v.GetString("poll.watermark"),
			UTCOffset: v.GetDuration("poll.utc_offset"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Records: RecordsConfig{
			Enabled:         v.GetBool("records.enabled"),
			Driver:          v.GetString("records.driver"),
			SQLitePath:      v.GetString("records.sqlite_path"),
			Retention:       v.GetDuration("records.retention"),
			CleanupInterval: v.GetDuration("records.cleanup_interval"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shipstation-endpoint"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://data.shipstation.com/1.1"
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.API.MaxPages == 0 {
		cfg.API.MaxPages = 100
	}
	if cfg.Lookup.Strategy == "" {
		cfg.Lookup.Strategy = "static"
	}
	if cfg.Lookup.CacheBackend == "" {
		cfg.Lookup.CacheBackend = "none"
	}
	if cfg.Lookup.CacheTTL == 0 {
		cfg.Lookup.CacheTTL = 24 * time.Hour
	}
	if cfg.Poll.Watermark == "" {
		cfg.Poll.Watermark = "shipdate"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Records.Driver == "" {
		cfg.Records.Driver = "sqlite"
	}
	if cfg.Records.SQLitePath == "" {
		cfg.Records.SQLitePath = "sync_records.db"
	}
	if cfg.Records.CleanupInterval <= 0 {
		cfg.Records.CleanupInterval = time.Hour
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shipstation"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// polls can page through many results
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := oneOf("lookup.strategy", c.Lookup.Strategy, "static", "remote"); err != nil {
		return err
	}
	if err := oneOf("lookup.cache_backend", c.Lookup.CacheBackend, "none", "memory", "redis"); err != nil {
		return err
	}
	if err := oneOf("poll.watermark", c.Poll.Watermark, "shipdate", "creation"); err != nil {
		return err
	}
	if err := oneOf("records.driver", c.Records.Driver, "postgres", "sqlite"); err != nil {
		return err
	}
	if c.Lookup.CacheTTL < 0 {
		return fmt.Errorf("lookup.cache_ttl cannot be negative")
	}
	if c.Records.Retention < 0 {
		return fmt.Errorf("records.retention cannot be negative")
	}
	if c.API.RequestsPerMinute < 0 {
		return fmt.Errorf("api.requests_per_minute cannot be negative")
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.API.Username == "" || c.API.Password == "" {
			return fmt.Errorf("api.username and api.password are required in production")
		}
		if !strings.HasPrefix(c.API.BaseURL, "https://") {
			return fmt.Errorf("api.base_url must use https in production")
		}
		if c.Records.Enabled && c.Records.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
