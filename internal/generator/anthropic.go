package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

func NewAnthropicClient(opts Options) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(opts.APIKey),
	)
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	return &AnthropicClient{client: &client, model: opts.Model, temperature: temperature, maxTokens: maxTokens}
}

func (c *AnthropicClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: param.NewOpt(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *AnthropicClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second

	var (
		message *anthropic.Message
		attempt int
	)
	err := backoff.Retry(func() error {
		attempt++
		var err error
		message, err = c.client.Messages.New(ctx, params)
		if err != nil {
			logrus.WithFields(logrus.Fields{"component": "generator", "attempt": attempt}).WithError(err).Warn("anthropic call failed")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, 1), ctx))
	if err != nil {
		return nil, fmt.Errorf("anthropic API failed after retries: %w", err)
	}
	return message, nil
}
