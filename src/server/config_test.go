package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := GetConfig()

	assert.Equal(t, "9898", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SHUTDOWN_TIMEOUT", "10s")

	cfg := GetConfig()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
