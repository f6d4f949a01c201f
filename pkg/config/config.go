package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Signal struct {
		Path            string        `yaml:"path"`
		AuthTimeout     time.Duration `yaml:"auth_timeout"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		PongTimeout     time.Duration `yaml:"pong_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		SendQueueSize   int           `yaml:"send_queue_size"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"signal"`

	Store struct {
		Timeout         time.Duration `yaml:"timeout"`
		CreatorCacheTTL time.Duration `yaml:"creator_cache_ttl"`
		HistoryLimit    int           `yaml:"history_limit"`
		Retry           struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`
		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			SuccessThreshold int           `yaml:"success_threshold"`
			Timeout          time.Duration `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"store"`

	Monitoring struct {
		PrometheusEnabled   bool          `yaml:"prometheus_enabled"`
		HealthCheckInterval time.Duration `yaml:"health_check_interval"`
		HealthCheckTimeout  time.Duration `yaml:"health_check_timeout"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
		VerifyTimeout  time.Duration `yaml:"verify_timeout"`
		IssueEnabled   bool          `yaml:"issue_enabled"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64       `yaml:"requests_per_second"`
			Burst             int           `yaml:"burst"`
			MaxConcurrent     int           `yaml:"max_concurrent"` // global concurrent HTTP requests
			IdleTTL           time.Duration `yaml:"idle_ttl"`       // per-IP limiters unused this long are dropped
		} `yaml:"http"`

		WebSocket struct {
			MessagesPerSecond   float64 `yaml:"messages_per_second"`
			Burst               int     `yaml:"burst"`
			MaxMessageSizeBytes int64   `yaml:"max_message_size_bytes"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Seed Seed `yaml:"seed"`
}

// Seed preloads users, boards and channels into empty repositories. It is
// meant for local development; credentials are issued separately.
type Seed struct {
	Users  []SeedUser  `yaml:"users"`
	Boards []SeedBoard `yaml:"boards"`
}

type SeedUser struct {
	ID        string `yaml:"id"`
	Username  string `yaml:"username"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

type SeedBoard struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Admin    string        `yaml:"admin"`
	Members  []string      `yaml:"members"`
	Channels []SeedChannel `yaml:"channels"`
}

type SeedChannel struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Signal
	if c.Signal.Path == "" {
		return fmt.Errorf("signal.path must not be empty")
	}
	if c.Signal.AuthTimeout <= 0 {
		return fmt.Errorf("signal.auth_timeout must be > 0")
	}
	if c.Signal.PingInterval <= 0 {
		return fmt.Errorf("signal.ping_interval must be > 0")
	}
	if c.Signal.PongTimeout <= c.Signal.PingInterval {
		return fmt.Errorf("signal.pong_timeout must be > signal.ping_interval")
	}
	if c.Signal.WriteTimeout <= 0 {
		return fmt.Errorf("signal.write_timeout must be > 0")
	}
	if c.Signal.SendQueueSize <= 0 {
		return fmt.Errorf("signal.send_queue_size must be > 0")
	}

	// Store
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be > 0")
	}
	if c.Store.CreatorCacheTTL <= 0 {
		return fmt.Errorf("store.creator_cache_ttl must be > 0")
	}
	if c.Store.HistoryLimit <= 0 {
		return fmt.Errorf("store.history_limit must be > 0")
	}
	if c.Store.Retry.Enabled {
		if c.Store.Retry.MaxAttempts < 0 {
			return fmt.Errorf("store.retry.max_attempts must be >= 0")
		}
		if c.Store.Retry.InitialDelay <= 0 || c.Store.Retry.MaxDelay < c.Store.Retry.InitialDelay {
			return fmt.Errorf("store.retry delays must satisfy 0 < initial_delay <= max_delay")
		}
	}
	if c.Store.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("store.circuit_breaker.failure_threshold must be > 0")
	}
	if c.Store.CircuitBreaker.SuccessThreshold <= 0 {
		return fmt.Errorf("store.circuit_breaker.success_threshold must be > 0")
	}
	if c.Store.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("store.circuit_breaker.timeout must be > 0")
	}

	// Monitoring
	if c.Monitoring.HealthCheckTimeout <= 0 {
		return fmt.Errorf("monitoring.health_check_timeout must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}
	if c.Auth.VerifyTimeout <= 0 {
		return fmt.Errorf("auth.verify_timeout must be > 0")
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.IdleTTL <= 0 {
			return fmt.Errorf("rate_limiting.http.idle_ttl must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.MessagesPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.websocket.messages_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
	}
	if c.RateLimiting.WebSocket.MaxMessageSizeBytes <= 0 {
		return fmt.Errorf("rate_limiting.websocket.max_message_size_bytes must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Signal.Path = "/ws"
	cfg.Signal.AuthTimeout = 5 * time.Second
	cfg.Signal.PingInterval = 25 * time.Second
	cfg.Signal.PongTimeout = 60 * time.Second
	cfg.Signal.WriteTimeout = 10 * time.Second
	cfg.Signal.SendQueueSize = 256
	cfg.Signal.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Signal.ShutdownTimeout = 10 * time.Second

	cfg.Store.Timeout = 5 * time.Second
	cfg.Store.CreatorCacheTTL = 5 * time.Minute
	cfg.Store.HistoryLimit = 50
	cfg.Store.Retry.Enabled = true
	cfg.Store.Retry.MaxAttempts = 2
	cfg.Store.Retry.InitialDelay = 50 * time.Millisecond
	cfg.Store.Retry.MaxDelay = time.Second
	cfg.Store.CircuitBreaker.FailureThreshold = 5
	cfg.Store.CircuitBreaker.SuccessThreshold = 2
	cfg.Store.CircuitBreaker.Timeout = 30 * time.Second

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.HealthCheckInterval = 15 * time.Second
	cfg.Monitoring.HealthCheckTimeout = 2 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.Prefix = "boardchat:"

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 24 * time.Hour
	cfg.Auth.VerifyTimeout = 3 * time.Second
	cfg.Auth.IssueEnabled = false

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.HTTP.IdleTTL = 10 * time.Minute
	cfg.RateLimiting.WebSocket.MessagesPerSecond = 20
	cfg.RateLimiting.WebSocket.Burst = 40
	cfg.RateLimiting.WebSocket.MaxMessageSizeBytes = 64 * 1024

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("BOARDCHAT_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("BOARDCHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("BOARDCHAT_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if addr := os.Getenv("BOARDCHAT_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if enabled, err := strconv.ParseBool(os.Getenv("BOARDCHAT_REDIS_ENABLED")); err == nil {
		c.Redis.Enabled = enabled
	}
}
