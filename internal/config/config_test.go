package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "https://v4.goteo.org", cfg.V4BaseURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.SecureCookies)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg := Load()

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5433, cfg.PostgresPort)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "not-a-port")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
