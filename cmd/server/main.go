// Command server runs the secure-review HTTP API.
//
// Configuration comes from the environment (and an optional .env file); see
// internal/config for the full list of variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/secure-review/internal/analyzer"
	"github.com/sakif/secure-review/internal/analyzer/ollama"
	"github.com/sakif/secure-review/internal/analyzer/openai"
	"github.com/sakif/secure-review/internal/config"
	"github.com/sakif/secure-review/internal/kv"
	"github.com/sakif/secure-review/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		slog.Error("failed to create logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Any("config", cfg))

	ctx := context.Background()

	a, err := newAnalyzer(cfg, logger)
	if err != nil {
		logger.Error("failed to create analyzer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	states, err := newStateStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to state store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg, logger, a, states, server.Options{})
	if err != nil {
		states.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}

func newAnalyzer(cfg *config.Config, logger *slog.Logger) (analyzer.Analyzer, error) {
	switch cfg.AnalyzerProvider {
	case config.ProviderOllama:
		return ollama.New(ollama.Config{Host: cfg.OllamaHost, Model: cfg.OllamaModel}, logger)
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set; every analysis will return the fallback result")
		}
		return openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.AnalyzerProvider)
	}
}

// newStateStore uses Redis when REDIS_URL is set, so OAuth state survives
// restarts and is shared between replicas.
func newStateStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kv.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set; using in-process OAuth state store")
		return kv.NewMemoryStore(), nil
	}
	return kv.NewRedisStore(ctx, cfg.RedisURL)
}
