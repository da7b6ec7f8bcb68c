// Package openai generates answers with the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"interview-assistant/internal/service/answer"
)

const (
	systemPrompt = "You are a helpful assistant."
	userPrefix   = "Answer the following question concisely: "
)

// Config holds the client parameters.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string // empty uses the public endpoint
	MaxTokens int
	Timeout   time.Duration // per request; zero disables
}

// DefaultConfig returns the parameters the assistant ships with.
func DefaultConfig() Config {
	return Config{
		Model:     openai.GPT4,
		MaxTokens: 150,
		Timeout:   30 * time.Second,
	}
}

// Generator implements answer.Generator.
type Generator struct {
	client *openai.Client
	cfg    Config
}

var _ answer.Generator = (*Generator)(nil)

// New creates a new OpenAI answer generator.
func New(cfg Config) *Generator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

func (g *Generator) Name() string { return "openai" }

// Answer asks the model for a concise answer to question.
func (g *Generator) Answer(ctx context.Context, question string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrefix + question},
		},
		MaxTokens: g.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", answer.ErrEmptyAnswer
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", answer.ErrEmptyAnswer
	}
	return text, nil
}
