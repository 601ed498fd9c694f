package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/espelita/portfolio/backend/internal/reveal"
)

// Config aggregates every setting the backend reads at startup.
type Config struct {
	Server  ServerConfig
	Flowise FlowiseConfig
	Redis   RedisConfig
	CORS    CORSConfig
	Session SessionConfig
	Hero    HeroConfig
	Log     LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	cfg.CORS.AllowedOrigins = cleanList(cfg.CORS.AllowedOrigins)

	if cfg.Hero.MaxIterations < 1 {
		cfg.Hero.MaxIterations = 1
	}

	return &cfg, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port string `env:"PORT" env-default:"8080"`
	Addr string
}

// normalizeAddr turns PORT into a listen address.
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are passed through untouched.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// FlowiseConfig points at the hosted prediction endpoint.
type FlowiseConfig struct {
	APIURL     string        `env:"FLOWISE_API_URL" env-default:"https://cloud.flowiseai.com"`
	ChatflowID string        `env:"FLOWISE_CHATFLOW_ID"`
	APIKey     string        `env:"FLOWISE_API_KEY"`
	Timeout    time.Duration `env:"FLOWISE_TIMEOUT" env-default:"60s"`
}

// Enabled reports whether both chatflow id and key were provided.
func (c FlowiseConfig) Enabled() bool {
	return strings.TrimSpace(c.ChatflowID) != "" && strings.TrimSpace(c.APIKey) != ""
}

// PredictionEndpoint builds {apiUrl}/api/v1/prediction/{chatflowId}.
func (c FlowiseConfig) PredictionEndpoint() (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if base == "" {
		return "", fmt.Errorf("FLOWISE_API_URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("invalid FLOWISE_API_URL %q: %w", base, err)
	}
	// A missing chatflow id still yields a (malformed) endpoint; the service answers with an error.
	return base + "/api/v1/prediction/" + url.PathEscape(strings.TrimSpace(c.ChatflowID)), nil
}

// RedisConfig enables redis-backed session scopes when Addr is set.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" env-default:"portfolio"`
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// CORSConfig lists the page origins allowed to call the API with cookies.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SessionConfig bounds how long idle visitors are kept in memory.
type SessionConfig struct {
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" env-default:"24h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" env-default:"10m"`
}

// HeroConfig holds the text reveal timings.
type HeroConfig struct {
	DecryptTick   time.Duration `env:"HERO_DECRYPT_TICK" env-default:"30ms"`
	MaxIterations int           `env:"HERO_DECRYPT_ITERATIONS" env-default:"8"`
	NameDelay     time.Duration `env:"HERO_NAME_DELAY" env-default:"100ms"`
	PrefixDelay   time.Duration `env:"HERO_PREFIX_DELAY" env-default:"0s"`
	TypingSpeed   time.Duration `env:"HERO_TYPING_SPEED" env-default:"80ms"`
	DeletingSpeed time.Duration `env:"HERO_DELETING_SPEED" env-default:"40ms"`
	PauseDuration time.Duration `env:"HERO_PAUSE_DURATION" env-default:"1500ms"`
	PingInterval  time.Duration `env:"HERO_WS_PING_INTERVAL" env-default:"30s"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" env-default:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" env-default:"false"`
}

// Options turns the timings into reveal.HeroOptions for the given copy.
func (c HeroConfig) Options(name, prefix string, roles []string) reveal.HeroOptions {
	return reveal.HeroOptions{
		Name:          name,
		Prefix:        prefix,
		Roles:         roles,
		NameDelay:     c.NameDelay,
		PrefixDelay:   c.PrefixDelay,
		Tick:          c.DecryptTick,
		MaxIterations: c.MaxIterations,
		TypingSpeed:   c.TypingSpeed,
		DeletingSpeed: c.DeletingSpeed,
		PauseDuration: c.PauseDuration,
	}
}
