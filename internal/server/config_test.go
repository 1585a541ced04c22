package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	req := require.New(t)
	cfg := NewConfig()

	req.Equal(":12345", cfg.Addr)
	req.Equal([]string{"http://localhost:12345"}, cfg.AllowedOrigins)
	req.EqualValues(512, cfg.MaxMessageSize)
	req.Equal(5, cfg.RateLimitBurst)
	req.Equal(time.Second, cfg.RateLimitRefill)
	req.Equal(10*time.Second, cfg.ShutdownTimeout)
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("PARTYCHAT_ADDR", ":9999")
	t.Setenv("PARTYCHAT_ALLOWED_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("PARTYCHAT_MAX_MESSAGE_SIZE", "2048")
	t.Setenv("PARTYCHAT_RATE_LIMIT_BURST", "20")
	t.Setenv("PARTYCHAT_RATE_LIMIT_REFILL_INTERVAL", "250ms")

	cfg, err := NewConfigFromEnv()
	req.NoError(err)
	req.Equal(":9999", cfg.Addr)
	req.Equal([]string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	req.EqualValues(2048, cfg.MaxMessageSize)
	req.Equal(20, cfg.RateLimitBurst)
	req.Equal(250*time.Millisecond, cfg.RateLimitRefill)
}

func TestNewConfigFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("PARTYCHAT_MAX_MESSAGE_SIZE", "-1")

	_, err := NewConfigFromEnv()
	require.Error(t, err)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	req := require.New(t)

	SetConfig(&Config{})
	cfg := currentConfig()

	req.Equal(":12345", cfg.Addr)
	req.EqualValues(512, cfg.MaxMessageSize)
	req.Equal(5, cfg.RateLimitBurst)
	req.Equal(time.Second, cfg.RateLimitRefill)
}

func TestSetConfigNormalizesOrigins(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })
	req := require.New(t)

	SetConfig(&Config{AllowedOrigins: []string{" HTTP://Example.COM ", "not an origin", ""}})
	cfg := currentConfig()

	req.Equal([]string{"http://example.com"}, cfg.AllowedOrigins)
}

func TestSetConfigDoesNotAliasCallerSlice(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	origins := []string{"http://example.com"}
	SetConfig(&Config{AllowedOrigins: origins})
	origins[0] = "http://hijacked.example"

	require.Equal(t, []string{"http://example.com"}, currentConfig().AllowedOrigins)
}
