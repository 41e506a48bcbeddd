// Package config handles loading and validation of service configuration
// from environment variables and an optional YAML configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// StorageBackend selects the persistent store implementation.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StorageSQLite   StorageBackend = "sqlite"
	StorageRedis    StorageBackend = "redis"
	StoragePostgres StorageBackend = "postgres"
	StorageS3       StorageBackend = "s3"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment     Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port            string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins  []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version         string      `mapstructure:"VERSION" yaml:"version"`
	ShutdownTimeout int         `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// StorageConfig selects and configures the key-value persistence backend.
type StorageConfig struct {
	Backend    StorageBackend `mapstructure:"BACKEND" yaml:"backend"`
	KeyPrefix  string         `mapstructure:"KEY_PREFIX" yaml:"key_prefix"`
	SQLitePath string         `mapstructure:"SQLITE_PATH" yaml:"sqlite_path"`
	// RunMigrations applies the kv_entries schema on startup (postgres only).
	RunMigrations bool `mapstructure:"RUN_MIGRATIONS" yaml:"run_migrations"`
}

// DatabaseConfig holds PostgreSQL connection details for the postgres backend.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and pgx.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// ObjectStoreConfig configures the S3-compatible (S3 or Cloudflare R2) backend.
type ObjectStoreConfig struct {
	Bucket          string `mapstructure:"BUCKET" yaml:"bucket"`
	Region          string `mapstructure:"REGION" yaml:"region"`
	Endpoint        string `mapstructure:"ENDPOINT" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY" yaml:"secret_access_key"`
}

// WeatherConfig holds the knobs of the weather state layer.
type WeatherConfig struct {
	FreshnessWindow time.Duration `mapstructure:"FRESHNESS_WINDOW" yaml:"freshness_window"`
	DefaultCityID   string        `mapstructure:"DEFAULT_CITY_ID" yaml:"default_city_id"`
	RecentLimit     int           `mapstructure:"RECENT_LIMIT" yaml:"recent_limit"`
	MinQueryLength  int           `mapstructure:"MIN_QUERY_LENGTH" yaml:"min_query_length"`
	SearchDebounce  time.Duration `mapstructure:"SEARCH_DEBOUNCE" yaml:"search_debounce"`
	StartupTimeout  time.Duration `mapstructure:"STARTUP_TIMEOUT" yaml:"startup_timeout"`
}

// LocationConfig configures the server-side geolocation provider.
type LocationConfig struct {
	// PermissionGranted mirrors the device permission prompt result.
	PermissionGranted bool    `mapstructure:"PERMISSION_GRANTED" yaml:"permission_granted"`
	Latitude          float64 `mapstructure:"LATITUDE" yaml:"latitude"`
	Longitude         float64 `mapstructure:"LONGITUDE" yaml:"longitude"`
	// UseClientReports takes positions from clients instead of the fixed coordinates.
	UseClientReports bool `mapstructure:"USE_CLIENT_REPORTS" yaml:"use_client_reports"`
}

// SummaryConfig configures AI weather summaries.
type SummaryConfig struct {
	Enabled           bool          `mapstructure:"ENABLED" yaml:"enabled"`
	APIKey            string        `mapstructure:"API_KEY" yaml:"api_key"`
	Model             string        `mapstructure:"MODEL" yaml:"model"`
	RequestsPerMinute int           `mapstructure:"REQUESTS_PER_MINUTE" yaml:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"TIMEOUT" yaml:"timeout"`
	CacheTTL          time.Duration `mapstructure:"CACHE_TTL" yaml:"cache_ttl"`
}

// NotificationConfig configures delivery of severe weather alerts through
// the notification facade API.
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"ENABLED" yaml:"enabled"`
	APIURL      string `mapstructure:"API_URL" yaml:"api_url"`
	APIKey      string `mapstructure:"API_KEY" yaml:"api_key"`
	RecipientID string `mapstructure:"RECIPIENT_ID" yaml:"recipient_id"`
}

// EventServiceConfig holds configuration for state event publication.
type EventServiceConfig struct {
	// RedisEnabled mirrors state events onto a Redis channel.
	RedisEnabled            bool `mapstructure:"REDIS_ENABLED" yaml:"redis_enabled"`
	PublishTimeoutSeconds   int  `mapstructure:"PUBLISH_TIMEOUT_SECONDS" yaml:"publish_timeout_seconds"`
	SubscribeTimeoutSeconds int  `mapstructure:"SUBSCRIBE_TIMEOUT_SECONDS" yaml:"subscribe_timeout_seconds"`
	EventBufferSize         int  `mapstructure:"EVENT_BUFFER_SIZE" yaml:"event_buffer_size"`
}

// WorkerPoolConfig sizes the pool that delivers events to subscribers.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// Config aggregates all configuration sections.
type Config struct {
	Server       ServerConfig       `mapstructure:"SERVER" yaml:"server"`
	Storage      StorageConfig      `mapstructure:"STORAGE" yaml:"storage"`
	Database     DatabaseConfig     `mapstructure:"DATABASE" yaml:"database"`
	Redis        RedisConfig        `mapstructure:"REDIS" yaml:"redis"`
	ObjectStore  ObjectStoreConfig  `mapstructure:"OBJECT_STORE" yaml:"object_store"`
	Weather      WeatherConfig      `mapstructure:"WEATHER" yaml:"weather"`
	Location     LocationConfig     `mapstructure:"LOCATION" yaml:"location"`
	Summary      SummaryConfig      `mapstructure:"SUMMARY" yaml:"summary"`
	Notification NotificationConfig `mapstructure:"NOTIFICATION" yaml:"notification"`
	EventService EventServiceConfig `mapstructure:"EVENT_SERVICE" yaml:"event_service"`
	WorkerPool   WorkerPoolConfig   `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
}

// IsDevelopment returns true if the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// NeedsRedis reports whether any component requires a Redis connection.
func (c *Config) NeedsRedis() bool {
	return c.Storage.Backend == StorageRedis || c.EventService.RedisEnabled
}

func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.SHUTDOWN_TIMEOUT_SECONDS", 15)

	v.SetDefault("STORAGE.BACKEND", StorageMemory)
	v.SetDefault("STORAGE.KEY_PREFIX", "@climapro")
	v.SetDefault("STORAGE.SQLITE_PATH", "climapro.db")
	v.SetDefault("STORAGE.RUN_MIGRATIONS", true)

	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "climapro_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 5)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")

	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)

	v.SetDefault("OBJECT_STORE.REGION", "auto")

	v.SetDefault("WEATHER.FRESHNESS_WINDOW", time.Hour)
	v.SetDefault("WEATHER.DEFAULT_CITY_ID", "new-york")
	v.SetDefault("WEATHER.RECENT_LIMIT", 10)
	v.SetDefault("WEATHER.MIN_QUERY_LENGTH", 2)
	v.SetDefault("WEATHER.SEARCH_DEBOUNCE", 300*time.Millisecond)
	v.SetDefault("WEATHER.STARTUP_TIMEOUT", 10*time.Second)

	v.SetDefault("LOCATION.PERMISSION_GRANTED", false)
	v.SetDefault("LOCATION.USE_CLIENT_REPORTS", true)

	v.SetDefault("SUMMARY.ENABLED", false)
	v.SetDefault("SUMMARY.MODEL", "gemini-2.0-flash")
	v.SetDefault("SUMMARY.REQUESTS_PER_MINUTE", 6)
	v.SetDefault("SUMMARY.TIMEOUT", 20*time.Second)
	v.SetDefault("SUMMARY.CACHE_TTL", time.Hour)

	v.SetDefault("NOTIFICATION.ENABLED", false)
	v.SetDefault("NOTIFICATION.RECIPIENT_ID", "climapro-device")

	v.SetDefault("EVENT_SERVICE.REDIS_ENABLED", false)
	v.SetDefault("EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", 5)
	v.SetDefault("EVENT_SERVICE.SUBSCRIBE_TIMEOUT_SECONDS", 10)
	v.SetDefault("EVENT_SERVICE.EVENT_BUFFER_SIZE", 100)

	v.SetDefault("WORKER_POOL.MAX_WORKERS", 16)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 5)
}

var envBindings = [][2]string{
	// Server config
	{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
	{"SERVER.PORT", "PORT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.VERSION", "VERSION"},
	// Storage config
	{"STORAGE.BACKEND", "STORAGE_BACKEND"},
	{"STORAGE.KEY_PREFIX", "STORAGE_KEY_PREFIX"},
	{"STORAGE.SQLITE_PATH", "STORAGE_SQLITE_PATH"},
	{"STORAGE.RUN_MIGRATIONS", "STORAGE_RUN_MIGRATIONS"},
	// Database config
	{"DATABASE.HOST", "DB_HOST"},
	{"DATABASE.PORT", "DB_PORT"},
	{"DATABASE.USER", "DB_USER"},
	{"DATABASE.PASSWORD", "DB_PASSWORD"},
	{"DATABASE.NAME", "DB_NAME"},
	{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
	// Redis config
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	// Object store config
	{"OBJECT_STORE.BUCKET", "OBJECT_STORE_BUCKET"},
	{"OBJECT_STORE.REGION", "OBJECT_STORE_REGION"},
	{"OBJECT_STORE.ENDPOINT", "OBJECT_STORE_ENDPOINT"},
	{"OBJECT_STORE.ACCESS_KEY_ID", "OBJECT_STORE_ACCESS_KEY_ID"},
	{"OBJECT_STORE.SECRET_ACCESS_KEY", "OBJECT_STORE_SECRET_ACCESS_KEY"},
	// Weather config
	{"WEATHER.FRESHNESS_WINDOW", "WEATHER_FRESHNESS_WINDOW"},
	{"WEATHER.DEFAULT_CITY_ID", "WEATHER_DEFAULT_CITY_ID"},
	{"WEATHER.RECENT_LIMIT", "WEATHER_RECENT_LIMIT"},
	// Location config
	{"LOCATION.PERMISSION_GRANTED", "LOCATION_PERMISSION_GRANTED"},
	{"LOCATION.LATITUDE", "LOCATION_LATITUDE"},
	{"LOCATION.LONGITUDE", "LOCATION_LONGITUDE"},
	{"LOCATION.USE_CLIENT_REPORTS", "LOCATION_USE_CLIENT_REPORTS"},
	// Summary config
	{"SUMMARY.ENABLED", "SUMMARY_ENABLED"},
	{"SUMMARY.API_KEY", "GEMINI_API_KEY"},
	{"SUMMARY.MODEL", "SUMMARY_MODEL"},
	{"SUMMARY.REQUESTS_PER_MINUTE", "SUMMARY_REQUESTS_PER_MINUTE"},
	// Notification config
	{"NOTIFICATION.ENABLED", "NOTIFICATION_ENABLED"},
	{"NOTIFICATION.API_URL", "NOTIFICATION_API_URL"},
	{"NOTIFICATION.API_KEY", "NOTIFICATION_API_KEY"},
	{"NOTIFICATION.RECIPIENT_ID", "NOTIFICATION_RECIPIENT_ID"},
	// Event service config
	{"EVENT_SERVICE.REDIS_ENABLED", "EVENT_SERVICE_REDIS_ENABLED"},
	{"EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", "EVENT_SERVICE_PUBLISH_TIMEOUT_SECONDS"},
	{"EVENT_SERVICE.SUBSCRIBE_TIMEOUT_SECONDS", "EVENT_SERVICE_SUBSCRIBE_TIMEOUT_SECONDS"},
	{"EVENT_SERVICE.EVENT_BUFFER_SIZE", "EVENT_SERVICE_EVENT_BUFFER_SIZE"},
	// Worker pool config
	{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
}

// newViper builds the viper instance shared by LoadConfig and the watcher.
// When configFile is non-empty it is read as YAML and env vars override it.
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// LoadConfig loads configuration from environment variables (and the YAML
// file named by CONFIG_FILE, if set), applies defaults and validates it.
func LoadConfig() (*Config, error) {
	cfg, _, err := load(os.Getenv("CONFIG_FILE"))
	return cfg, err
}

// LoadConfigFile is LoadConfig with an explicit YAML file. It also returns
// the viper instance so the file can be watched for changes.
func LoadConfigFile(configFile string) (*Config, *viper.Viper, error) {
	return load(configFile)
}

func load(configFile string) (*Config, *viper.Viper, error) {
	log := logger.GetLogger()

	v, err := newViper(configFile)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"storage_backend", cfg.Storage.Backend,
		"freshness_window", cfg.Weather.FreshnessWindow,
		"default_city", cfg.Weather.DefaultCityID,
		"summary_enabled", cfg.Summary.Enabled,
		"redis_events", cfg.EventService.RedisEnabled,
		"config_file", configFile,
	)
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	switch cfg.Server.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown environment '%s'", cfg.Server.Environment)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if err := validateStorage(cfg); err != nil {
		return err
	}

	if cfg.Weather.FreshnessWindow <= 0 {
		return fmt.Errorf("weather freshness window must be positive")
	}
	if cfg.Weather.DefaultCityID == "" {
		return fmt.Errorf("weather default city id is required")
	}
	if cfg.Weather.RecentLimit <= 0 {
		return fmt.Errorf("weather recent limit must be positive")
	}
	if cfg.Weather.MinQueryLength < 0 {
		return fmt.Errorf("weather min query length must not be negative")
	}

	if err := validateSummary(&cfg.Summary, log); err != nil {
		return err
	}

	if cfg.Notification.Enabled {
		if _, err := url.ParseRequestURI(cfg.Notification.APIURL); err != nil {
			return fmt.Errorf("invalid notification api url '%s': %w", cfg.Notification.APIURL, err)
		}
		if cfg.Notification.RecipientID == "" {
			return fmt.Errorf("notification recipient id is required")
		}
	}

	if cfg.EventService.PublishTimeoutSeconds <= 0 {
		return fmt.Errorf("event service publish timeout must be positive")
	}
	if cfg.EventService.SubscribeTimeoutSeconds <= 0 {
		return fmt.Errorf("event service subscribe timeout must be positive")
	}
	if cfg.EventService.EventBufferSize <= 0 {
		return fmt.Errorf("event service buffer size must be positive")
	}
	if cfg.EventService.RedisEnabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis events are enabled")
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}

	return nil
}

func validateStorage(cfg *Config) error {
	switch cfg.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if cfg.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite backend")
		}
	case StorageRedis:
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	case StoragePostgres:
		if cfg.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres backend")
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database name is required for the postgres backend")
		}
		if cfg.Database.Password == "" {
			logger.GetLogger().Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
		}
	case StorageS3:
		if cfg.ObjectStore.Bucket == "" {
			return fmt.Errorf("object store bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend '%s'", cfg.Storage.Backend)
	}
	return nil
}

// validateSummary disables summaries with a warning when no API key is set.
func validateSummary(cfg *SummaryConfig, log interface{ Warn(args ...interface{}) }) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.APIKey == "" {
		log.Warn("Summary API key not set, auto-disabling AI weather summaries")
		cfg.Enabled = false
		return nil
	}
	if cfg.Model == "" {
		return fmt.Errorf("summary model is required")
	}
	if cfg.RequestsPerMinute <= 0 {
		return fmt.Errorf("summary requests per minute must be positive")
	}
	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
