package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string
	TokenTTL      time.Duration

	AdminEmail    string
	AdminPassword string

	NotifyQueueSize int
	NotifyTimeout   time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean. Empty PostgresURL/RedisURL/KafkaBrokers select the in-memory
// fallbacks; production deployments set all three.
func FromEnv() Server {
	addr := os.Getenv("BOM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@brainomath.com"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}
	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "registration.transitions"
	}

	return Server{
		Addr:            addr,
		PostgresURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    brokers,
		KafkaTopic:      topic,
		JWTSigningKey:   jwtSigningKey,
		TokenTTL:        24 * time.Hour,
		AdminEmail:      adminEmail,
		AdminPassword:   adminPassword,
		NotifyQueueSize: 256,
		NotifyTimeout:   30 * time.Second,
	}
}
