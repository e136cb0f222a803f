package config_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/forage/internal/config"
	"github.com/stretchr/testify/assert"
)

func Test_MustLoadFromEnv(t *testing.T) {
	t.Setenv("FORAGE_ENV", "local")
	t.Setenv("FORAGE_MAPBOX_TOKEN", "testToken")
	t.Setenv("FORAGE_MAPBOX_TIMEOUT", "3s")
	t.Setenv("FORAGE_MAPBOX_RATE_LIMIT", "7")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_PASSWORD", "adminpass")
	t.Setenv("DB_NAME", "testName")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "testToken", cfg.MapboxToken)
	assert.Equal(t, 3*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 7, cfg.MapboxRateLimit)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
}

func TestMustLoad_PortError(t *testing.T) {
	t.Setenv("FORAGE_PORT", "error_value")

	assert.PanicsWithValue(t, "failed to parse port for HTTP server from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_TimeoutError(t *testing.T) {
	t.Setenv("FORAGE_MAPBOX_TIMEOUT", "error_value")

	assert.PanicsWithValue(t, "failed to parse mapbox timeout from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_RateLimitError(t *testing.T) {
	t.Setenv("FORAGE_MAPBOX_RATE_LIMIT", "error_value")

	assert.PanicsWithValue(t, "failed to parse mapbox rate limit from configuration, must be an integer", func() {
		config.MustLoad()
	})
}
