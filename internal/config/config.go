package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит все настройки приложения, собранные из переменных окружения
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	// PresenceTTL определяет, как долго грузовик считается "в сети" без heartbeat
	PresenceTTL time.Duration
	// MaxSearchRadiusKm - максимальный радиус поиска ближайших грузовиков
	MaxSearchRadiusKm float64
}

// Load читает конфигурацию из переменных окружения с значениями по умолчанию
func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "foodtruck"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		PresenceTTL:       30 * time.Second,
		MaxSearchRadiusKm: 15,
	}

	if val, err := strconv.Atoi(os.Getenv("PRESENCE_TTL_SECONDS")); err == nil && val > 0 {
		cfg.PresenceTTL = time.Duration(val) * time.Second
	}

	if val, err := strconv.ParseFloat(os.Getenv("MAX_SEARCH_RADIUS_KM"), 64); err == nil && val > 0 {
		cfg.MaxSearchRadiusKm = val
	}

	return cfg
}

// DSN собирает строку подключения к PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// RedisAddr возвращает адрес Redis в формате host:port
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
