package config

import (
	"os"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	JWTSigningKey  string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	Redis          RedisConfig
	Kafka          KafkaConfig
	PostgresDSN    string
}

// RedisConfig configures the optional shared rate-limit store.
// An empty URL means the in-memory store is used.
type RedisConfig struct {
	URL      string
	PoolSize int
}

// KafkaConfig configures the optional audit event publisher.
// Empty brokers disable Kafka emission; audit events still go to the log.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TILLGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	environment := os.Getenv("TILLGATE_ENV")
	if environment == "" {
		environment = "development"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenTTL := 12 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			tokenTTL = d
		}
	}

	requestTimeout := 30 * time.Second
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			requestTimeout = d
		}
	}

	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "tillgate.audit"
	}

	return Server{
		Addr:           addr,
		Environment:    environment,
		JWTSigningKey:  jwtSigningKey,
		TokenTTL:       tokenTTL,
		RequestTimeout: requestTimeout,
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: auditTopic,
		},
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
}
