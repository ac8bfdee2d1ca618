package config

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultRankerPort     = 8082
	defaultDispatcherPort = 8081
	defaultVersion        = "0.1.0"
	defaultLoggingLevel   = "info"
	defaultLoggingFmt     = "json"

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBName    = "rescue_db"
	defaultDBUser    = "postgres"
	defaultDBSSLMode = "disable"

	defaultRankingPageSize   = 100
	defaultRecomputeInterval = 2 * time.Minute

	defaultRankerBaseURL  = "http://localhost:8082"
	defaultClientTimeout  = 30 * time.Second
	defaultMaxUnknownSize = 5
	defaultCacheTTL       = 24 * time.Hour
	defaultRedisAddress   = "localhost:6379"
)

// Config holds configuration for both services. Each binary reads the
// sections it needs.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"SERVICE_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"    yaml:"debug"`
}

// DatabaseConfig holds the catalog PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `env:"RESCUE_DB_HOST"     yaml:"host"`
	Port     int    `env:"RESCUE_DB_PORT"     yaml:"port"`
	User     string `env:"RESCUE_DB_USER"     yaml:"user"`
	Password string `env:"RESCUE_DB_PASSWORD" yaml:"password"`
	Database string `env:"RESCUE_DB_NAME"     yaml:"database"`
	SSLMode  string `env:"RESCUE_DB_SSLMODE"  yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// URL returns the PostgreSQL URL form used by golang-migrate.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// RankingConfig holds ranker-side configuration.
type RankingConfig struct {
	PageSize          int           `yaml:"page_size"`
	RecomputeInterval time.Duration `env:"RANKING_RECOMPUTE_INTERVAL" yaml:"recompute_interval"`
}

// DispatcherConfig holds dispatcher-side configuration.
type DispatcherConfig struct {
	RankerBaseURL        string        `env:"RANKER_BASE_URL" yaml:"ranker_base_url"`
	ClientTimeout        time.Duration `yaml:"client_timeout"`
	MaxUnknownSizeAssets int           `yaml:"max_unknown_size_assets"`
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	RescueLogPath        string        `env:"RESCUE_LOG_PATH" yaml:"rescue_log_path"`
}

// RedisConfig holds the ranking-cache / event-stream Redis configuration.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path with defaults applied.
func Load(path string) (*Config, error) {
	return loadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setRankingDefaults(&cfg.Ranking)
	setDispatcherDefaults(&cfg.Dispatcher)
	setRedisDefaults(&cfg.Redis)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		switch svc.Name {
		case "dispatcher":
			svc.Port = defaultDispatcherPort
		default:
			svc.Port = defaultRankerPort
		}
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setRankingDefaults(r *RankingConfig) {
	if r.PageSize == 0 {
		r.PageSize = defaultRankingPageSize
	}
	if r.RecomputeInterval == 0 {
		r.RecomputeInterval = defaultRecomputeInterval
	}
}

func setDispatcherDefaults(d *DispatcherConfig) {
	if d.RankerBaseURL == "" {
		d.RankerBaseURL = defaultRankerBaseURL
	}
	if d.ClientTimeout == 0 {
		d.ClientTimeout = defaultClientTimeout
	}
	if d.MaxUnknownSizeAssets == 0 {
		d.MaxUnknownSizeAssets = defaultMaxUnknownSize
	}
	if d.CacheTTL == 0 {
		d.CacheTTL = defaultCacheTTL
	}
}

func setRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = defaultRedisAddress
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// ErrInvalidPort is returned when the configured port is out of range.
var ErrInvalidPort = errors.New("service port must be between 1 and 65535")

const maxPort = 65535

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > maxPort {
		return ErrInvalidPort
	}
	if c.Service.Name == "" {
		return errors.New("service name is required")
	}
	if c.Ranking.PageSize < 1 {
		return errors.New("ranking page_size must be positive")
	}
	return nil
}
