// Package openai adapts an OpenAI-compatible API to the rag embedder and
// completer interfaces.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"noteflow/internal/config"
	"noteflow/internal/services/rag"

	goopenai "github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion is returned when the API answers without choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// Provider embeds and completes through one API client.
type Provider struct {
	client          *goopenai.Client
	embeddingModel  string
	completionModel string
	timeout         time.Duration
	log             *slog.Logger
}

// New builds a provider from config. OPENAI_BASE_URL points it at any
// compatible endpoint.
func New(cfg config.Config, log *slog.Logger) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	return &Provider{
		client:          goopenai.NewClientWithConfig(clientCfg),
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
		timeout:         time.Duration(cfg.ProviderTimeoutSec) * time.Second,
		log:             log,
	}
}

// Model names the embedding model. Cache keys include it.
func (p *Provider) Model() string { return p.embeddingModel }

func (p *Provider) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Embed returns one vector per input, in input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		p.log.Warn("embedding request failed", "error", err, "model", p.embeddingModel, "inputs", len(texts))
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// Complete runs a single-turn chat completion at temperature 0.
func (p *Provider) Complete(ctx context.Context, prompt rag.Prompt) (string, error) {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt.UserMessage(),
	})

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.completionModel,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		p.log.Warn("completion request failed", "error", err, "model", p.completionModel)
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
