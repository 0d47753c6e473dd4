// Package ollama analyzes code with a locally hosted model through the
// Ollama generate API.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/JexSrs/go-ollama"

	"github.com/sakif/secure-review/internal/analyzer"
)

var _ analyzer.Analyzer = (*Analyzer)(nil)

type Config struct {
	Host  string // e.g. http://127.0.0.1:11434
	Model string
}

// generateFunc sends one system+prompt pair and returns the full reply.
type generateFunc func(system, prompt string) (string, error)

type Analyzer struct {
	generate generateFunc
	logger   *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Analyzer, error) {
	hostURL, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid host %q: %w", cfg.Host, err)
	}
	if cfg.Model == "" {
		return nil, errors.New("ollama: model must be set")
	}

	client := ollama.New(*hostURL)
	model := cfg.Model

	generate := func(system, prompt string) (string, error) {
		res, err := client.Generate(
			client.Generate.WithModel(model),
			client.Generate.WithSystem(system),
			client.Generate.WithPrompt(prompt),
		)
		if err != nil {
			return "", fmt.Errorf("ollama: generate: %w", err)
		}
		if !res.Done {
			return "", errors.New("ollama: generate returned an unfinished response")
		}
		return res.Response, nil
	}

	logger.Info("using ollama analyzer", "host", hostURL.Redacted(), "model", model)
	return newWithGenerate(generate, logger), nil
}

func newWithGenerate(generate generateFunc, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		generate: generate,
		logger:   logger.With("component", "analyzer.ollama"),
	}
}

// AnalyzeCode runs one generate call. The client library takes no context,
// so cancellation abandons the call and degrades the result.
func (a *Analyzer) AnalyzeCode(ctx context.Context, req analyzer.Request) *analyzer.Result {
	type reply struct {
		content string
		err     error
	}
	done := make(chan reply, 1)

	go func() {
		content, err := a.generate(analyzer.SystemPrompt, analyzer.BuildPrompt(req))
		done <- reply{content, err}
	}()

	select {
	case r := <-done:
		return analyzer.Complete(a.logger, "ollama", r.content, r.err)
	case <-ctx.Done():
		return analyzer.Complete(a.logger, "ollama", "", ctx.Err())
	}
}
