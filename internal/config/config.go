package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	RateLimit RateLimitConfig
	Chat      ChatConfig
	Lobby     LobbyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// RateLimitConfig bounds inbound command rates. Poll creation and vote
// submission are limited per client IP over HTTP; realtime commands are
// limited per connection in the fan-out layer.
type RateLimitConfig struct {
	PollCreateMax       int
	PollCreateWindowSec int
	VoteMax             int
	VoteWindowSec       int
	SocketMax           int
	SocketWindowSec     int
}

// ChatConfig bounds lobby chat messages.
type ChatConfig struct {
	MaxMessageLength int
	SenderMax        int
	SenderWindowSec  int
}

// LobbyConfig names the shared lobby all students join.
type LobbyConfig struct {
	ID string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "classroom-polling-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		RateLimit: RateLimitConfig{
			PollCreateMax:       getEnvAsInt("RATE_LIMIT_POLL_CREATE_MAX", 3),
			PollCreateWindowSec: getEnvAsInt("RATE_LIMIT_POLL_CREATE_WINDOW_SECONDS", 60),
			VoteMax:             getEnvAsInt("RATE_LIMIT_VOTE_MAX", 5),
			VoteWindowSec:       getEnvAsInt("RATE_LIMIT_VOTE_WINDOW_SECONDS", 10),
			SocketMax:           getEnvAsInt("RATE_LIMIT_SOCKET_MAX", 5),
			SocketWindowSec:     getEnvAsInt("RATE_LIMIT_SOCKET_WINDOW_SECONDS", 10),
		},
		Chat: ChatConfig{
			MaxMessageLength: getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", 200),
			SenderMax:        getEnvAsInt("CHAT_SENDER_MAX", 5),
			SenderWindowSec:  getEnvAsInt("CHAT_SENDER_WINDOW_SECONDS", 10),
		},
		Lobby: LobbyConfig{
			ID: getEnv("LOBBY_ID", "global_lobby"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollCreateWindow returns the poll-creation limiter window.
func (r RateLimitConfig) PollCreateWindow() time.Duration {
	return time.Duration(r.PollCreateWindowSec) * time.Second
}

// VoteWindow returns the vote limiter window.
func (r RateLimitConfig) VoteWindow() time.Duration {
	return time.Duration(r.VoteWindowSec) * time.Second
}

// SocketWindow returns the per-connection realtime limiter window.
func (r RateLimitConfig) SocketWindow() time.Duration {
	return time.Duration(r.SocketWindowSec) * time.Second
}

// SenderWindow returns the per-sender chat limiter window.
func (c ChatConfig) SenderWindow() time.Duration {
	return time.Duration(c.SenderWindowSec) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
