package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret  string
	ServerPort string

	InitialUSDCents int64
	InitialEURCents int64

	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBName:          getEnv("DB_NAME", "banking"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		InitialUSDCents: getEnvInt64("INITIAL_BALANCE_USD_CENTS", 100000),
		InitialEURCents: getEnvInt64("INITIAL_BALANCE_EUR_CENTS", 50000),
		DefaultPage:     getEnvInt("DEFAULT_PAGE", 1),
		DefaultLimit:    getEnvInt("DEFAULT_LIMIT", 10),
		MaxLimit:        getEnvInt("MAX_LIMIT", 100),
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be set and at least 32 characters")
	}
	if cfg.InitialUSDCents < 0 || cfg.InitialEURCents < 0 {
		return nil, fmt.Errorf("initial balances cannot be negative")
	}

	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
