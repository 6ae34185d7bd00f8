package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config defines configuration options for the OpenAI-backed answerer.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      *zap.Logger
}

// Client wraps the OpenAI chat completion API. It answers questions against
// a caller-supplied fact base and never feeds model output back into domain
// state.
type Client struct {
	api    *openai.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient builds a client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	return &Client{
		api:    openai.NewClientWithConfig(config),
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// Answer sends the system prompt and user question to the model and returns
// the completion text.
func (c *Client) Answer(ctx context.Context, systemPrompt, question string) (string, error) {
	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from openai")
	}

	c.logger.Debug("chat completion",
		zap.String("model", c.cfg.Model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
