package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SERVER_PORT",
	"ALLOWED_ORIGINS",
	"MAX_MESSAGE_SIZE",
	"RATE_LIMIT_BURST",
	"RATE_LIMIT_REFILL_INTERVAL",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
}

// clearConfigEnv unsets every configuration variable for the duration of the
// test; t.Setenv restores the previous values afterwards.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	require.EqualValues(t, 2048, cfg.MaxMessageSize)
	require.Equal(t, RateLimitConfig{Burst: 5, RefillInterval: time.Second}, cfg.RateLimit)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example ,")
	t.Setenv("MAX_MESSAGE_SIZE", "4096")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Port)
	require.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.EqualValues(t, 4096, cfg.MaxMessageSize)
	require.Equal(t, RateLimitConfig{Burst: 20, RefillInterval: 3 * time.Second}, cfg.RateLimit)
	require.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero burst", "RATE_LIMIT_BURST", "0"},
		{"negative message size", "MAX_MESSAGE_SIZE", "-1"},
		{"unknown log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RATE_LIMIT_BURST=9\n"), 0o600))

	cfg, err := LoadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, 9, cfg.RateLimit.Burst)
}

func TestSetConfigSanitizes(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{AllowedOrigins: []string{"HTTPS://Chat.Example.COM", "not-an-origin", " "}})

	cfg := CurrentConfig()
	require.Equal(t, ":8080", cfg.Port)
	require.EqualValues(t, 2048, cfg.MaxMessageSize)
	require.Equal(t, 5, cfg.RateLimit.Burst)
	require.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, []string{"https://chat.example.com"}, cfg.AllowedOrigins)
}

func TestSetConfigNilRestoresDefaults(t *testing.T) {
	SetConfig(&Config{Port: ":1234", RateLimit: RateLimitConfig{Burst: 1}})
	SetConfig(nil)

	require.Equal(t, *NewConfig(), CurrentConfig())
}
