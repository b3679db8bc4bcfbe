package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	KafkaGroupID    string
	LifecycleTopic  string
	PublishLifecyle bool

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Diagnostic narrative backend
	NarrativeBaseURL string
	NarrativeAPIKey  string
	NarrativeTimeout time.Duration

	// Pipeline
	StrategyCatalogPath string
	EnsembleEnabled     bool
	PrivacyRulesPath    string

	// Monitoring
	AuditLogPath       string
	SlowRequestMs      float64
	DecisionCacheTTL   time.Duration
	GatewayRateLimit   int
	GatewayRateBurst   int
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "earlycare"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "earlycare123"),
		PostgresDB:       getEnv("POSTGRES_DB", "earlycare"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "earlycare-gateway"),
		LifecycleTopic:  getEnv("LIFECYCLE_TOPIC", "clinical-events"),
		PublishLifecyle: getBoolEnv("PUBLISH_LIFECYCLE_EVENTS", false),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		NarrativeBaseURL: getEnv("NARRATIVE_BASE_URL", ""),
		NarrativeAPIKey:  getEnv("NARRATIVE_API_KEY", ""),
		NarrativeTimeout: getDuration("NARRATIVE_TIMEOUT", 10*time.Second),

		StrategyCatalogPath: getEnv("STRATEGY_CATALOG_PATH", ""),
		EnsembleEnabled:     getBoolEnv("ENSEMBLE_ENABLED", false),
		PrivacyRulesPath:    getEnv("PRIVACY_RULES_PATH", ""),

		AuditLogPath:     getEnv("AUDIT_LOG_PATH", "audit.log"),
		SlowRequestMs:    getFloatEnv("SLOW_REQUEST_MS", 5000),
		DecisionCacheTTL: getDuration("DECISION_CACHE_TTL", 5*time.Minute),
		GatewayRateLimit: getIntEnv("GATEWAY_RATE_LIMIT_RPS", 50),
		GatewayRateBurst: getIntEnv("GATEWAY_RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
