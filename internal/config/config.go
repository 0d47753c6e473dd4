// Package config loads process settings from the environment.
//
// A .env file in the working directory is applied first when present, then
// envconfig fills Config from the environment. Load is called once in main
// and the resulting *Config is passed to every constructor that needs it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	ProjectName string `envconfig:"PROJECT_NAME" default:"Secure Review"`
	APIPrefix   string `envconfig:"API_PREFIX"`
	Port        int    `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`

	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"24h"`

	AnalyzerProvider string `envconfig:"ANALYZER_PROVIDER" default:"openai"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel      string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL"`
	OllamaHost       string `envconfig:"OLLAMA_HOST" default:"http://127.0.0.1:11434"`
	OllamaModel      string `envconfig:"OLLAMA_MODEL" default:"llama3.1"`

	GitHubClientID     string `envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `envconfig:"GITHUB_CALLBACK_URL"`

	RedisURL    string `envconfig:"REDIS_URL"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Load applies .env (if any) and reads Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if len(c.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.AccessTokenTTL <= 0 {
		problems = append(problems, "ACCESS_TOKEN_TTL must be positive")
	}
	if c.APIPrefix != "" && (!strings.HasPrefix(c.APIPrefix, "/") || strings.HasSuffix(c.APIPrefix, "/")) {
		problems = append(problems, "API_PREFIX must start with / and must not end with /")
	}

	switch c.AnalyzerProvider {
	case ProviderOpenAI:
		if c.OpenAIBaseURL != "" {
			if _, err := url.ParseRequestURI(c.OpenAIBaseURL); err != nil {
				problems = append(problems, "OPENAI_BASE_URL must be a valid URL")
			}
		}
	case ProviderOllama:
		if _, err := url.ParseRequestURI(c.OllamaHost); err != nil {
			problems = append(problems, "OLLAMA_HOST must be a valid URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("ANALYZER_PROVIDER must be %q or %q", ProviderOpenAI, ProviderOllama))
	}

	if (c.GitHubClientID != "") != (c.GitHubClientSecret != "") {
		problems = append(problems, "GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, "LOG_FORMAT must be text or json")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, "LOG_LEVEL must be debug, info, warn or error")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid environment:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GitHubEnabled reports whether GitHub OAuth credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// LogValue keeps secrets out of log output.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project", c.ProjectName),
		slog.String("api_prefix", c.APIPrefix),
		slog.Int("port", c.Port),
		slog.String("database_url", MaskURL(c.DatabaseURL)),
		slog.Bool("auto_migrate", c.AutoMigrate),
		slog.String("jwt_secret", MaskSecret(c.JWTSecret)),
		slog.Duration("access_token_ttl", c.AccessTokenTTL),
		slog.String("analyzer", c.AnalyzerProvider),
		slog.String("openai_api_key", MaskSecret(c.OpenAIAPIKey)),
		slog.String("openai_model", c.OpenAIModel),
		slog.String("ollama_host", c.OllamaHost),
		slog.Bool("github_oauth", c.GitHubEnabled()),
		slog.String("redis_url", MaskURL(c.RedisURL)),
		slog.String("frontend_url", c.FrontendURL),
	)
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// MaskURL hides the password part of a connection URL.
func MaskURL(raw string) string {
	if raw == "" {
		return "<not set>"
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
