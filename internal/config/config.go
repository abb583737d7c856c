package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// MQTT Config (фид телеметрии)
	MQTTBroker   string `env:"MQTT_BROKER" envDefault:"tcp://broker.hivemq.com:1883"`
	MQTTClientID string `env:"MQTT_CLIENT_ID" envDefault:"sikad-server"`

	// SMS Config (PhilSMS)
	SMSAPIURL        string        `env:"SMS_API_URL" envDefault:"https://app.philsms.com/api/v3/sms/send"`
	SMSAPIToken      string        `env:"SMS_API_TOKEN"`
	SMSSenderID      string        `env:"SMS_SENDER_ID" envDefault:"PhilSMS"`
	SMSTimeout       time.Duration `env:"SMS_TIMEOUT" envDefault:"10s"`
	SMSRetryBackoff  time.Duration `env:"SMS_RETRY_BACKOFF" envDefault:"5s"`
	SMSMaxConcurrent int           `env:"SMS_MAX_CONCURRENT" envDefault:"8"`
	SMSRatePerSec    int           `env:"SMS_RATE_PER_SEC" envDefault:"10"`

	// Fence Cache Config
	FenceCacheTTL time.Duration `env:"FENCE_CACHE_TTL" envDefault:"60s"`

	// Device Registry Config
	DeviceIdleTTL       time.Duration `env:"DEVICE_IDLE_TTL" envDefault:"12h"`
	DeviceSweepInterval time.Duration `env:"DEVICE_SWEEP_INTERVAL" envDefault:"10m"`
	MaxTrackedDevices   int           `env:"MAX_TRACKED_DEVICES" envDefault:"10000"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvAsInt("REDIS_DB", 0),
		RedisPoolSize:       getEnvAsInt("REDIS_POOL_SIZE", 10),
		MQTTBroker:          getEnv("MQTT_BROKER", "tcp://broker.hivemq.com:1883"),
		MQTTClientID:        getEnv("MQTT_CLIENT_ID", "sikad-server"),
		SMSAPIURL:           getEnv("SMS_API_URL", "https://app.philsms.com/api/v3/sms/send"),
		SMSAPIToken:         os.Getenv("SMS_API_TOKEN"),
		SMSSenderID:         getEnv("SMS_SENDER_ID", "PhilSMS"),
		SMSTimeout:          getEnvAsDuration("SMS_TIMEOUT", 10*time.Second),
		SMSRetryBackoff:     getEnvAsDuration("SMS_RETRY_BACKOFF", 5*time.Second),
		SMSMaxConcurrent:    getEnvAsInt("SMS_MAX_CONCURRENT", 8),
		SMSRatePerSec:       getEnvAsInt("SMS_RATE_PER_SEC", 10),
		FenceCacheTTL:       getEnvAsDuration("FENCE_CACHE_TTL", 60*time.Second),
		DeviceIdleTTL:       getEnvAsDuration("DEVICE_IDLE_TTL", 12*time.Hour),
		DeviceSweepInterval: getEnvAsDuration("DEVICE_SWEEP_INTERVAL", 10*time.Minute),
		MaxTrackedDevices:   getEnvAsInt("MAX_TRACKED_DEVICES", 10000),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
