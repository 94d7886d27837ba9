package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. RAPPORT_SERVER_PORT.
const EnvPrefix = "RAPPORT"

// Config holds all rapport configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	LLM      LLMConfig      `yaml:"llm" envconfig:"LLM"`
	Auth     AuthConfig     `yaml:"auth" envconfig:"AUTH"`
	Log      LogConfig      `yaml:"log" envconfig:"LOG"`
}

type ServerConfig struct {
	Bind           string   `yaml:"bind" split_words:"true"`
	Port           int      `yaml:"port" split_words:"true"`
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" split_words:"true"` // "sqlite" or "postgres"
	Path   string `yaml:"path" split_words:"true"`   // sqlite file
	DSN    string `yaml:"dsn" split_words:"true"`    // postgres connection string
}

type LLMConfig struct {
	Provider       string        `yaml:"provider" split_words:"true"` // "anthropic", "openai", "ollama", "mock"
	Model          string        `yaml:"model" split_words:"true"`
	AnthropicKey   string        `yaml:"anthropic_key" split_words:"true"`
	OpenAIKey      string        `yaml:"openai_key" envconfig:"OPENAI_KEY"`
	OllamaURL      string        `yaml:"ollama_url" split_words:"true"`
	TimeoutSeconds int           `yaml:"timeout_seconds" split_words:"true"`
	Breaker        BreakerConfig `yaml:"breaker" envconfig:"BREAKER"`
}

// BreakerConfig controls the circuit breaker in front of the LLM provider.
// MaxFailures of 0 disables the breaker.
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures" split_words:"true"`
	OpenSeconds int    `yaml:"open_seconds" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret" split_words:"true"`
	Issuer          string `yaml:"issuer" split_words:"true"`
	Audience        string `yaml:"audience" split_words:"true"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Pretty bool   `yaml:"pretty" split_words:"true"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:           "127.0.0.1",
			Port:           5000,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			TimeoutSeconds: 30,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenSeconds: 30,
			},
		},
		Auth: AuthConfig{
			Issuer:          "rapport",
			Audience:        "rapport-api",
			TokenTTLMinutes: 7 * 24 * 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if non-empty), then RAPPORT_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("process environment: %w", err)
	}

	// Conventional provider key variables win only when nothing explicit was set.
	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.LLM.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("llm.timeout_seconds must be positive"))
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("auth.token_ttl_minutes must be positive"))
	}
	return errors.Join(errs...)
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// LLMTimeout is the per-call deadline applied to classification requests.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// TokenTTL is the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}
