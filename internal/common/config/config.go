package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
	}
	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
		TTLSec   int
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Dispatch struct {
		Port           int
		MaxOrders      int
		AvailableLimit int
	}
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "dispatch_user")
	cfg.Database.Password = getEnv("DB_PASSWORD", "dispatch_pass")
	cfg.Database.Name = getEnv("DB_NAME", "dispatch_db")

	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnvInt("REDIS_PORT", 6379)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.TTLSec = getEnvInt("REDIS_LOCATION_TTL", 3600)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", 5672)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", "guest")
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")

	cfg.Dispatch.Port = getEnvInt("DISPATCH_SERVICE_PORT", 3002)
	cfg.Dispatch.MaxOrders = getEnvInt("ROUTE_MAX_ORDERS", 5)
	cfg.Dispatch.AvailableLimit = getEnvInt("AVAILABLE_ORDERS_LIMIT", 20)

	return cfg, nil
}

func (c *Config) Print() {
	fmt.Printf("📦 Database: %s@%s:%d/%s\n", c.Database.User, c.Database.Host, c.Database.Port, c.Database.Name)
	fmt.Printf("🗺  Redis: %s:%d (db %d)\n", c.Redis.Host, c.Redis.Port, c.Redis.DB)
	fmt.Printf("🐇 RabbitMQ: amqp://%s@%s:%d\n", c.RabbitMQ.User, c.RabbitMQ.Host, c.RabbitMQ.Port)
	fmt.Printf("🧩 Dispatch service → port:%d | max orders per route:%d\n",
		c.Dispatch.Port, c.Dispatch.MaxOrders)
}
