package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "ws://localhost:3333/socket", cfg.ServerURL)
	assert.Equal(t, ":8090", cfg.HTTPAddr)
	assert.Equal(t, "vpwa.audit", cfg.AMQPExchange)
	assert.Empty(t, cfg.AMQPURL)
	assert.Equal(t, time.Second, cfg.ReconnectInitial)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMax)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_URL", "wss://chat.example.com/socket")
	t.Setenv("RECONNECT_INITIAL", "250ms")
	t.Setenv("AUTH_TOKEN", "secret")

	cfg := Load()

	assert.Equal(t, "wss://chat.example.com/socket", cfg.ServerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectInitial)
	assert.Equal(t, "secret", cfg.Token)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RECONNECT_MAX", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.ReconnectMax)
}
