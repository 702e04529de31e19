package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config конфигурация процесса из переменных окружения (или .env-файла)
type Config struct {
	HTTPAddr    string
	Storage     string // memory | postgres
	PostgresDSN string
	AMQPURL     string // опционально: брокер событий
}

// Load читает .env (если есть) и переменные окружения
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":9091"),
		Storage:     getEnv("STORAGE", "memory"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		AMQPURL:     getEnv("AMQP_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
