package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the motion server.
type Config struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Anthropic AnthropicConfig
	Renderer  RendererConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host      string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port      string `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	DSN string `envconfig:"DATABASE_DSN" required:"true"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	URI string `envconfig:"REDIS_URI" required:"true"`
}

// AnthropicConfig holds Anthropic Claude API configuration.
type AnthropicConfig struct {
	APIKey     string `envconfig:"ANTHROPIC_API_KEY" required:"true"`
	Model      string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
	TitleModel string `envconfig:"ANTHROPIC_TITLE_MODEL" default:"claude-3-5-haiku-20241022"`
}

// RendererConfig holds Manim render farm configuration.
type RendererConfig struct {
	URL string `envconfig:"RENDERER_URL" required:"true"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
