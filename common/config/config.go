package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Redis     RedisConfig
	Renderer  RendererConfig
	Resolver  ResolverConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
	BaseURL     string // public base URL encoded into sign QR codes
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	Migrate     bool // apply embedded migrations on startup
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled      bool
	OwnershipTTL time.Duration
}

// QueueConfig holds generation queue settings
type QueueConfig struct {
	Type    string // "memory" is the only supported type today
	Workers int    // concurrent generation consumers
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RendererConfig holds artifact renderer settings
type RendererConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ResolverConfig holds public resolution settings
type ResolverConfig struct {
	ScanEventBuffer int // pending scan events before recording drops them
}

// RateLimitConfig holds public endpoint rate limit settings
type RateLimitConfig struct {
	Enabled     bool
	ScanLimit   int64 // resolves per client per window
	ScanWindowS int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from the environment.
// A .env file in the working directory is applied first when present.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
			BaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "signcore"),
			User:        getEnv("POSTGRES_USER", "signcore"),
			Password:    getEnv("POSTGRES_PASSWORD", "signcore"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
			Migrate:     getEnvBool("POSTGRES_MIGRATE", true),
		},
		Cache: CacheConfig{
			Enabled:      getEnvBool("CACHE_ENABLED", true),
			OwnershipTTL: getEnvDuration("CACHE_OWNERSHIP_TTL", 1*time.Minute),
		},
		Queue: QueueConfig{
			Type:    getEnv("QUEUE_TYPE", "memory"),
			Workers: getEnvInt("QUEUE_WORKERS", 4),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Renderer: RendererConfig{
			BaseURL: getEnv("RENDERER_URL", "http://localhost:8090"),
			Timeout: getEnvDuration("RENDERER_TIMEOUT", 30*time.Second),
		},
		Resolver: ResolverConfig{
			ScanEventBuffer: getEnvInt("SCAN_EVENT_BUFFER", 1024),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvBool("RATE_LIMIT_ENABLED", true),
			ScanLimit:   int64(getEnvInt("RATE_LIMIT_SCAN", 120)),
			ScanWindowS: getEnvInt("RATE_LIMIT_SCAN_WINDOW_S", 60),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", true),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if !strings.HasPrefix(c.Service.BaseURL, "http") {
		return fmt.Errorf("invalid public base URL: %s", c.Service.BaseURL)
	}

	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue workers must be >= 1")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns the Redis host:port address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
