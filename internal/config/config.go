// Package config loads runtime configuration from the environment and
// holds the tuning constants for matchmaking and moderation.
package config

import (
	"fmt"
	"os"
)

// Config is everything the binaries need from the environment.
type Config struct {
	Port      string
	JWTSecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	AMQPURL string // empty disables the analytics feed

	TelegramToken  string // empty disables admin alerts
	TelegramChatID int64
}

// FromEnv reads the configuration. Callers are expected to have loaded
// a .env file via godotenv beforehand if they want one.
func FromEnv() (*Config, error) {
	c := &Config{
		Port:           getenv("PORT", "8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBPort:         getenv("DB_PORT", "5432"),
		DBUser:         getenv("DB_USER", "user"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getenv("DB_NAME", "zapp"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: parseInt64(os.Getenv("TELEGRAM_ADMIN_CHAT_ID")),
	}
	if c.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return c, nil
}

// DSN builds the Postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt64(s string) int64 {
	var v int64
	fmt.Sscanf(s, "%d", &v)
	return v
}
