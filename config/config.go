package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	// CartAPIURL is the base URL of the remote cart backend.
	CartAPIURL string

	// StoreBackend selects where the guest cart and session token persist:
	// "file", "redis" or "memory".
	StoreBackend string
	DataDir      string
	RedisAddr    string
	RedisDB      int

	// CartEligibleRole is the only role the guest cart merge applies to.
	CartEligibleRole string

	// PollInterval is how often the count aggregator re-fetches the remote
	// cart while a session is active.
	PollInterval time.Duration

	// RabbitMQURL enables the cross-instance cart notice bridge when set.
	RabbitMQURL      string
	RabbitMQExchange string
	ChannelPoolSize  int
}

func LoadConfig() *Config {
	return &Config{
		Port:             getEnv("PORT", "8082"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CartAPIURL:       getEnv("CART_API_URL", "http://localhost:8080/api"),
		StoreBackend:     getEnv("STORE_BACKEND", "file"),
		DataDir:          getEnv("DATA_DIR", "./data"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		CartEligibleRole: getEnv("CART_ELIGIBLE_ROLE", "customer"),
		PollInterval:     getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "cart_notices"),
		ChannelPoolSize:  getEnvAsInt("CHANNEL_POOL_SIZE", 4),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
