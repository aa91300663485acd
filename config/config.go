package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Store configuration
	StoreTimeout       time.Duration
	MaxConflictRetries int
	ConflictBackoff    time.Duration

	// Validation configuration
	GateLockTTL time.Duration

	// Cache configuration
	CodeCacheTTL         time.Duration
	AvailabilityCacheTTL time.Duration

	// Monitoring
	EnableMetrics   bool
	MetricsInterval time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Store
		StoreTimeout:       getEnvAsDuration("STORE_TIMEOUT", "5s"),
		MaxConflictRetries: getEnvAsInt("MAX_CONFLICT_RETRIES", 3),
		ConflictBackoff:    getEnvAsDuration("CONFLICT_BACKOFF", "25ms"),

		// Validation
		GateLockTTL: getEnvAsDuration("GATE_LOCK_TTL", "3s"),

		// Caches
		CodeCacheTTL:         getEnvAsDuration("CODE_CACHE_TTL", "24h"),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", "1m"),

		// Monitoring
		EnableMetrics:   getEnvAsBool("ENABLE_METRICS", true),
		MetricsInterval: getEnvAsDuration("METRICS_INTERVAL", "30s"),
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
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
