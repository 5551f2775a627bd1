package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Training TrainingConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Metrics  MetricsConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	UploadMaxBytes int64
}

type StorageConfig struct {
	Root string
}

// Conflict policies for a second update arriving while a tenant is training.
const (
	ConflictPolicyWait   = "wait"
	ConflictPolicyReject = "reject"
)

type TrainingConfig struct {
	Timeout        time.Duration
	ConflictPolicy string
}

type CacheConfig struct {
	MaxEntries      int
	WarmOnStart     bool
	WarmConcurrency int
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type MetricsConfig struct {
	Enabled bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("UPLOAD_MAX_BYTES", 32<<20)
	v.SetDefault("STORAGE_ROOT", "./data/apps")
	v.SetDefault("TRAINING_TIMEOUT", "10m")
	v.SetDefault("TRAINING_CONFLICT_POLICY", ConflictPolicyWait)
	v.SetDefault("CACHE_MAX_ENTRIES", 0)
	v.SetDefault("CACHE_WARM_ON_START", false)
	v.SetDefault("CACHE_WARM_CONCURRENCY", 4)
	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "")
	v.SetDefault("DATABASE_NAME", "nlu")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	trainingTimeout, err := time.ParseDuration(v.GetString("TRAINING_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("parse TRAINING_TIMEOUT: %w", err)
	}

	connLifetime, err := time.ParseDuration(v.GetString("DATABASE_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}

	policy := strings.ToLower(v.GetString("TRAINING_CONFLICT_POLICY"))
	if policy != ConflictPolicyWait && policy != ConflictPolicyReject {
		return nil, fmt.Errorf("invalid TRAINING_CONFLICT_POLICY %q (want %q or %q)", policy, ConflictPolicyWait, ConflictPolicyReject)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Storage: StorageConfig{
			Root: v.GetString("STORAGE_ROOT"),
		},
		Training: TrainingConfig{
			Timeout:        trainingTimeout,
			ConflictPolicy: policy,
		},
		Cache: CacheConfig{
			MaxEntries:      v.GetInt("CACHE_MAX_ENTRIES"),
			WarmOnStart:     v.GetBool("CACHE_WARM_ON_START"),
			WarmConcurrency: v.GetInt("CACHE_WARM_CONCURRENCY"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("DATABASE_ENABLED"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
