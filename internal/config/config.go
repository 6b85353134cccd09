package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	Host         string
	Port         string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Base URL for share links
	BaseURL string

	// Simulated inference delay
	InferenceDelayEnabled bool
	InferenceDelayMinMs   int
	InferenceDelayMaxMs   int

	// Report storage
	StoreDriver      string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresMaxConns int

	// Redis configuration
	RedisEnabled bool
	RedisHost    string
	RedisPort    string
	RedisDB      int

	// Cache TTLs
	ReportCacheTTL time.Duration

	// Rate limiting
	RateLimitDetectPerMinute int

	// Auth0 configuration
	Auth0Domain   string
	Auth0Audience string

	// Circuit breaker configuration
	CBFailureThreshold int
	CBRecoveryTimeout  time.Duration
	CBSuccessThreshold int

	// Tuning profile
	TuningFile  string
	TuningWatch bool

	// Worker
	WorkerBatchSize     int
	WorkerFlushInterval time.Duration
	RetentionDays       int
	PruneSchedule       string
	WorkerMetricsPort   string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		// Server
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8000"),
		BodyLimit:    getEnvInt("MAX_UPLOAD_BYTES", 10<<20),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT_SECONDS", 10*time.Second),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT_SECONDS", 10*time.Second),
		IdleTimeout:  getEnvDuration("IDLE_TIMEOUT_SECONDS", 60*time.Second),

		BaseURL: getEnv("BASE_URL", "http://localhost:8000"),

		// Inference delay
		InferenceDelayEnabled: getEnvBool("INFERENCE_DELAY_ENABLED", true),
		InferenceDelayMinMs:   getEnvInt("INFERENCE_DELAY_MIN_MS", 1000),
		InferenceDelayMaxMs:   getEnvInt("INFERENCE_DELAY_MAX_MS", 3000),

		// Storage
		StoreDriver:      getEnv("STORE_DRIVER", StoreMemory),
		SQLitePath:       getEnv("SQLITE_PATH", "data/detector.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "aidetector"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresMaxConns: getEnvInt("POSTGRES_MAX_CONNECTIONS", 20),

		// Redis
		RedisEnabled: getEnvBool("REDIS_ENABLED", false),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),

		ReportCacheTTL: time.Duration(getEnvInt("REPORT_CACHE_TTL", 3600)) * time.Second,

		RateLimitDetectPerMinute: getEnvInt("RATE_LIMIT_DETECT_PER_MINUTE", 30),

		// Auth0
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),

		// Circuit breaker
		CBFailureThreshold: getEnvInt("CB_FAILURE_THRESHOLD", 5),
		CBRecoveryTimeout:  getEnvDuration("CB_RECOVERY_TIMEOUT", 30*time.Second),
		CBSuccessThreshold: getEnvInt("CB_SUCCESS_THRESHOLD", 3),

		// Tuning
		TuningFile:  getEnv("TUNING_FILE", ""),
		TuningWatch: getEnvBool("TUNING_WATCH", true),

		// Worker
		WorkerBatchSize:     getEnvInt("WORKER_BATCH_SIZE", 100),
		WorkerFlushInterval: getEnvDuration("WORKER_FLUSH_INTERVAL_SECONDS", 5*time.Second),
		RetentionDays:       getEnvInt("REPORT_RETENTION_DAYS", 30),
		PruneSchedule:       getEnv("PRUNE_SCHEDULE", "0 3 * * *"),
		WorkerMetricsPort:   getEnv("WORKER_METRICS_PORT", "9091"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.StoreDriver == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
	}
	if c.InferenceDelayMinMs < 0 || c.InferenceDelayMinMs > c.InferenceDelayMaxMs {
		errs = append(errs, fmt.Errorf("inference delay range %d-%dms is invalid", c.InferenceDelayMinMs, c.InferenceDelayMaxMs))
	}

	positive := []struct {
		name  string
		value int
	}{
		{"MAX_UPLOAD_BYTES", c.BodyLimit},
		{"POSTGRES_MAX_CONNECTIONS", c.PostgresMaxConns},
		{"RATE_LIMIT_DETECT_PER_MINUTE", c.RateLimitDetectPerMinute},
		{"CB_FAILURE_THRESHOLD", c.CBFailureThreshold},
		{"CB_SUCCESS_THRESHOLD", c.CBSuccessThreshold},
		{"WORKER_BATCH_SIZE", c.WorkerBatchSize},
		{"REPORT_RETENTION_DAYS", c.RetentionDays},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	if c.CBRecoveryTimeout <= 0 {
		errs = append(errs, errors.New("CB_RECOVERY_TIMEOUT must be positive"))
	}
	if c.WorkerFlushInterval <= 0 {
		errs = append(errs, errors.New("WORKER_FLUSH_INTERVAL_SECONDS must be positive"))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return "postgres://" + c.PostgresUser + ":" + c.PostgresPassword +
		"@" + c.PostgresHost + ":" + c.PostgresPort +
		"/" + c.PostgresDB + "?sslmode=disable"
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// InferenceDelay returns the simulated delay bounds
func (c *Config) InferenceDelay() (min, max time.Duration) {
	return time.Duration(c.InferenceDelayMinMs) * time.Millisecond,
		time.Duration(c.InferenceDelayMaxMs) * time.Millisecond
}

// Retention returns how long reports are kept
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration reads seconds as a float, e.g. CB_RECOVERY_TIMEOUT=2.5.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(floatVal * float64(time.Second))
		}
	}
	return defaultValue
}
