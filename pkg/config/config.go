package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Challenge ChallengeConfig
	Delivery  DeliveryConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig controls the token codec. Access tokens are short lived; refresh
// tokens are long lived and single use.
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessExpiration  time.Duration
	RefreshExpiration time.Duration
}

// ChallengeConfig controls login challenge generation.
type ChallengeConfig struct {
	TTL         time.Duration
	CodeLength  int
	ImageWidth  int
	ImageHeight int
}

// DeliveryConfig bounds outbound SMS/email challenge dispatch.
type DeliveryConfig struct {
	Timeout    time.Duration
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// WebSocketConfig tunes the realtime gateway.
type WebSocketConfig struct {
	SendQueueSize  int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, optionally seeded by a .env
// file in development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "admin_console")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ISSUER", "admin-console-api")
	v.SetDefault("JWT_ACCESS_EXPIRATION", "2h")
	v.SetDefault("JWT_REFRESH_EXPIRATION", "168h")

	v.SetDefault("CHALLENGE_TTL", "120s")
	v.SetDefault("CHALLENGE_CODE_LENGTH", 4)
	v.SetDefault("CHALLENGE_IMAGE_WIDTH", 160)
	v.SetDefault("CHALLENGE_IMAGE_HEIGHT", 60)

	v.SetDefault("DELIVERY_TIMEOUT", "10s")
	v.SetDefault("DELIVERY_WORKERS", 2)
	v.SetDefault("DELIVERY_MAX_RETRIES", 3)
	v.SetDefault("DELIVERY_RETRY_DELAY", "2s")

	v.SetDefault("WS_SEND_QUEUE", 64)
	v.SetDefault("WS_WRITE_TIMEOUT", "5s")
	v.SetDefault("WS_ALLOWED_ORIGINS", "")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		Env:       v.GetString("ENV"),
		Port:      v.GetInt("PORT"),
		APIPrefix: v.GetString("API_PREFIX"),
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			Issuer:            v.GetString("JWT_ISSUER"),
			AccessExpiration:  v.GetDuration("JWT_ACCESS_EXPIRATION"),
			RefreshExpiration: v.GetDuration("JWT_REFRESH_EXPIRATION"),
		},
		Challenge: ChallengeConfig{
			TTL:         v.GetDuration("CHALLENGE_TTL"),
			CodeLength:  v.GetInt("CHALLENGE_CODE_LENGTH"),
			ImageWidth:  v.GetInt("CHALLENGE_IMAGE_WIDTH"),
			ImageHeight: v.GetInt("CHALLENGE_IMAGE_HEIGHT"),
		},
		Delivery: DeliveryConfig{
			Timeout:    v.GetDuration("DELIVERY_TIMEOUT"),
			Workers:    v.GetInt("DELIVERY_WORKERS"),
			MaxRetries: v.GetInt("DELIVERY_MAX_RETRIES"),
			RetryDelay: v.GetDuration("DELIVERY_RETRY_DELAY"),
		},
		WebSocket: WebSocketConfig{
			SendQueueSize:  v.GetInt("WS_SEND_QUEUE"),
			WriteTimeout:   v.GetDuration("WS_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("WS_ALLOWED_ORIGINS")),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWT.AccessExpiration <= 0 || c.JWT.RefreshExpiration <= 0 {
		return errors.New("token expirations must be positive")
	}
	if c.Challenge.TTL <= 0 {
		return errors.New("CHALLENGE_TTL must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
