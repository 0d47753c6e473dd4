// Package openai analyzes code through the OpenAI chat completions API.
package openai

import (
	"context"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/sakif/secure-review/internal/analyzer"
)

const DefaultModel = "gpt-4o"

var _ analyzer.Analyzer = (*Analyzer)(nil)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and compatible servers
}

type Analyzer struct {
	client *goopenai.Client
	model  string
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Analyzer {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger.With("component", "analyzer.openai"),
	}
}

// AnalyzeCode sends one JSON-mode chat completion. There is no retry.
func (a *Analyzer) AnalyzeCode(ctx context.Context, req analyzer.Request) *analyzer.Result {
	resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: a.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: analyzer.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: analyzer.BuildPrompt(req)},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	var content string
	if err == nil && len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return analyzer.Complete(a.logger, "openai", content, err)
}
