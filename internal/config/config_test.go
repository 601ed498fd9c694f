package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FLOWISE_CHATFLOW_ID", "")
	t.Setenv("FLOWISE_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://cloud.flowiseai.com", cfg.Flowise.APIURL)
	assert.Equal(t, 60*time.Second, cfg.Flowise.Timeout)
	assert.False(t, cfg.Flowise.Enabled())
	assert.Equal(t, 30*time.Millisecond, cfg.Hero.DecryptTick)
	assert.Equal(t, 8, cfg.Hero.MaxIterations)
	assert.Equal(t, 1500*time.Millisecond, cfg.Hero.PauseDuration)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("FLOWISE_CHATFLOW_ID", "flow-1")
	t.Setenv("FLOWISE_API_KEY", "secret")
	t.Setenv("HERO_TYPING_SPEED", "10ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://espelita.dev, ,https://www.espelita.dev")
	t.Setenv("SESSION_IDLE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.True(t, cfg.Flowise.Enabled())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 10*time.Millisecond, cfg.Hero.TypingSpeed)
	assert.Equal(t, []string{"https://espelita.dev", "https://www.espelita.dev"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.Session.IdleTTL)
}

func TestNormalizeAddrRejectsSpaces(t *testing.T) {
	_, err := normalizeAddr("80 80")
	assert.Error(t, err)
}

func TestPredictionEndpoint(t *testing.T) {
	cfg := FlowiseConfig{APIURL: "https://flow.example.com/", ChatflowID: "abc-123"}

	endpoint, err := cfg.PredictionEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "https://flow.example.com/api/v1/prediction/abc-123", endpoint)
}

func TestPredictionEndpointWithoutBase(t *testing.T) {
	_, err := FlowiseConfig{ChatflowID: "abc"}.PredictionEndpoint()
	assert.Error(t, err)
}

func TestHeroOptions(t *testing.T) {
	cfg := HeroConfig{
		DecryptTick:   30 * time.Millisecond,
		MaxIterations: 8,
		NameDelay:     100 * time.Millisecond,
		TypingSpeed:   80 * time.Millisecond,
		DeletingSpeed: 40 * time.Millisecond,
		PauseDuration: 1500 * time.Millisecond,
	}

	opts := cfg.Options("Name", "I'm a", []string{"a", "b"})
	assert.Equal(t, "Name", opts.Name)
	assert.Equal(t, "I'm a", opts.Prefix)
	assert.Equal(t, []string{"a", "b"}, opts.Roles)
	assert.Equal(t, 30*time.Millisecond, opts.Tick)
	assert.Equal(t, 8, opts.MaxIterations)
	assert.Equal(t, 100*time.Millisecond, opts.NameDelay)
	assert.Equal(t, time.Duration(0), opts.PrefixDelay)
	assert.Equal(t, 1500*time.Millisecond, opts.PauseDuration)
}
