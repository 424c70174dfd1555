package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Services ServicesConfig
	Checkin  CheckinConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	FrontendURL        string // base URL for public check-in links
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/events?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds settings for validating tokens minted by the users service.
type JWTConfig struct {
	Secret string
}

// ServicesConfig holds base URLs and timeouts for collaborator services.
type ServicesConfig struct {
	UsersURL         string
	CertificatesURL  string
	NotificationsURL string
	IssueTimeout     time.Duration // synchronous certificate issuance budget
	FetchTimeout     time.Duration // user lookups and notification posts
}

// CheckinConfig holds QR check-in token policy.
type CheckinConfig struct {
	SingleUse              bool // deactivate a token after its first successful check-in
	DefaultDurationMinutes int
}

// NotifyConfig holds notification delivery retry policy.
type NotifyConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration // doubled after each failed attempt
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
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

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "events"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		Services: ServicesConfig{
			UsersURL:         getEnv("USERS_SERVICE_URL", "http://localhost:8001"),
			CertificatesURL:  getEnv("CERTIFICATES_SERVICE_URL", "http://localhost:8002"),
			NotificationsURL: getEnv("NOTIFICATIONS_SERVICE_URL", "http://localhost:8004"),
			IssueTimeout:     time.Duration(getEnvInt("CERT_ISSUE_TIMEOUT_SEC", 5)) * time.Second,
			FetchTimeout:     time.Duration(getEnvInt("SERVICE_FETCH_TIMEOUT_SEC", 3)) * time.Second,
		},
		Checkin: CheckinConfig{
			SingleUse:              getEnv("CHECKIN_SINGLE_USE", "false") == "true",
			DefaultDurationMinutes: getEnvInt("CHECKIN_DEFAULT_DURATION_MIN", 60),
		},
		Notify: NotifyConfig{
			MaxAttempts: getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			BaseDelay:   time.Duration(getEnvInt("NOTIFY_BASE_DELAY_MS", 500)) * time.Millisecond,
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
