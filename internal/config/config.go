package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the goal engine
type Config struct {
	// Server configuration
	HTTPPort int    `env:"PUNTINI_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend selection
	GraphBackend string `env:"GRAPH_BACKEND" envDefault:"memory"`
	StateBackend string `env:"STATE_BACKEND" envDefault:"memory"`
	EventBackend string `env:"EVENT_BACKEND" envDefault:"memory"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Neo4j configuration
	Neo4j Neo4jConfig

	// Redis configuration
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// Execution policy
	Execution ExecutionConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
	Username string `env:"NEO4J_USERNAME" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD"`
	Database string `env:"NEO4J_DATABASE" envDefault:"neo4j"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LLMConfig holds planner provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	Model          string        `env:"LLM_MODEL" envDefault:"claude-sonnet-4-20250514"`
	RequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`
}

// ExecutionConfig tunes the stage machine's retry and suspension policy
type ExecutionConfig struct {
	MaxRetries    int           `env:"EXECUTION_MAX_RETRIES" envDefault:"3"`
	StepLimit     int           `env:"EXECUTION_STEP_LIMIT" envDefault:"20"`
	BackoffBase   time.Duration `env:"EXECUTION_BACKOFF_BASE" envDefault:"500ms"`
	CheckpointTTL time.Duration `env:"EXECUTION_CHECKPOINT_TTL" envDefault:"24h"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueDepth          int           `env:"WORKER_QUEUE_DEPTH" envDefault:"64"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.GraphBackend {
	case "memory", "neo4j":
	default:
		return fmt.Errorf("unsupported graph backend: %s (must be memory or neo4j)", c.GraphBackend)
	}
	switch c.StateBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported state backend: %s (must be memory or redis)", c.StateBackend)
	}
	switch c.EventBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported event backend: %s (must be memory or redis)", c.EventBackend)
	}

	if c.GraphBackend == "neo4j" && c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j uri is required")
	}
	if (c.StateBackend == "redis" || c.EventBackend == "redis") && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	if c.Execution.MaxRetries < 0 {
		return fmt.Errorf("execution max retries must not be negative")
	}
	if c.Execution.StepLimit < 1 {
		return fmt.Errorf("execution step limit must be at least 1")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
