package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	AutoLogin  AutoLoginConfig
	RateLimit  RateLimitConfig
	Quorum     QuorumConfig
	Email      EmailConfig
	Conference ConferenceConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	RequestTimeout     int // per-handler deadline, seconds
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string // if set, used as-is
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MinConns        int
	ConnLifetimeMin int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// JWTConfig holds signing and session settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AutoLoginConfig holds single-holder credential settings.
type AutoLoginConfig struct {
	ExpireHours int
}

// RateLimitConfig holds sliding-window limits per endpoint class.
type RateLimitConfig struct {
	WindowSeconds   int
	AuthRequests    int
	QRRequests      int
	GeneralRequests int
}

// QuorumConfig holds the default attendance-weight threshold for meetings.
type QuorumConfig struct {
	DefaultThresholdPct float64
}

// EmailConfig for the SMTP delivery collaborator.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// ConferenceConfig for the video-conferencing collaborator.
type ConferenceConfig struct {
	BaseURL string // base for generated join/start URLs
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			RequestTimeout:     getEnvInt("REQUEST_TIMEOUT_SEC", 25),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "asambleas"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvInt("DB_MIN_CONNS", 2),
			ConnLifetimeMin: getEnvInt("DB_CONN_LIFETIME_MIN", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AutoLogin: AutoLoginConfig{
			ExpireHours: getEnvInt("AUTO_LOGIN_EXPIRE_HOURS", 48),
		},
		RateLimit: RateLimitConfig{
			WindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
			AuthRequests:    getEnvInt("RATE_LIMIT_AUTH", 10),
			QRRequests:      getEnvInt("RATE_LIMIT_QR", 30),
			GeneralRequests: getEnvInt("RATE_LIMIT_GENERAL", 120),
		},
		Quorum: QuorumConfig{
			DefaultThresholdPct: getEnvFloat("QUORUM_DEFAULT_THRESHOLD_PCT", 50.0),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Asambleas"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Conference: ConferenceConfig{
			BaseURL: getEnv("CONFERENCE_BASE_URL", "https://meet.example.com"),
		},
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
