package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the engine binary reads from the environment.
type Config struct {
	AppEnv    string
	ServerURL string
	HTTPAddr  string

	TokenFile string
	Token     string

	AMQPURL         string
	AMQPExchange    string
	AuditRoutingKey string

	ArchiveDSN string

	OTLPEndpoint string

	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// Load reads .env when present and then the process environment. Every value
// has a default; an empty environment yields a working local setup.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		ServerURL:        getEnv("SERVER_URL", "ws://localhost:3333/socket"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8090"),
		TokenFile:        getEnv("TOKEN_FILE", ".vpwa-token"),
		Token:            getEnv("AUTH_TOKEN", ""),
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "vpwa.audit"),
		AuditRoutingKey:  getEnv("AUDIT_ROUTING_KEY", "audit.session"),
		ArchiveDSN:       getEnv("ARCHIVE_DSN", ""),
		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", ""),
		ReconnectInitial: getDuration("RECONNECT_INITIAL", time.Second),
		ReconnectMax:     getDuration("RECONNECT_MAX", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
