package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Clerk    ClerkConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           int
	HandlerTimeout time.Duration
	// AllowedOrigins limits CORS. Empty admits every origin.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL string
	// SwapRetries bounds retries of a timestamp log append that lost a race.
	SwapRetries int
}

type ClerkConfig struct {
	SecretKey string
	// DevUserEmail is used for a single local user when no Clerk key is set.
	DevUserEmail string
}

type CacheConfig struct {
	CategoryTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           GetEnv("PORT", 8080).(int),
			HandlerTimeout: GetEnv("HANDLER_TIMEOUT", 10*time.Second).(time.Duration),
			AllowedOrigins: splitList(GetEnv("CORS_ALLOWED_ORIGINS", "").(string)),
		},
		Database: DatabaseConfig{
			URL:         GetEnv("DATABASE_URL", "file:./data/tracker.db").(string),
			SwapRetries: GetEnv("APPEND_RETRIES", 5).(int),
		},
		Clerk: ClerkConfig{
			SecretKey:    GetEnv("CLERK_SECRET_KEY", "").(string),
			DevUserEmail: GetEnv("DEV_USER_EMAIL", "").(string),
		},
		Cache: CacheConfig{
			CategoryTTL: GetEnv("CATEGORY_CACHE_TTL", 30*time.Second).(time.Duration),
		},
	}

	if cfg.Clerk.SecretKey == "" && cfg.Clerk.DevUserEmail == "" {
		return nil, fmt.Errorf("missing env CLERK_SECRET_KEY or DEV_USER_EMAIL")
	}
	if cfg.Database.SwapRetries < 1 {
		return nil, fmt.Errorf("APPEND_RETRIES must be at least 1, got %d", cfg.Database.SwapRetries)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func GetEnv(key string, defaultValue any) any {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch def := defaultValue.(type) {
	case string:
		return value
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		return def
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		return def
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
		return def
	default:
		panic(fmt.Sprintf("unsupported type %T", defaultValue))
	}
}
