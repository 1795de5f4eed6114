package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/guidely/backend/internal/config"
	"github.com/guidely/backend/internal/logger"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// LLMClient is the interface both coach backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewClient picks the mock when MOCK_COACH is set or no API key is configured.
func NewClient(cfg *config.Config, log *logger.Logger) (LLMClient, string) {
	if cfg.MockCoach || cfg.AnthropicAPIKey == "" {
		log.Info("coach using mock client")
		return NewMockClient(), "mock"
	}
	model := cfg.AnthropicModel
	if model == "" {
		model = defaultModel
	}
	log.Info("coach using Anthropic API", "model", model)
	return NewAPIClient(cfg.AnthropicAPIKey, model, log), model
}

// ── APIClient (Anthropic SDK) ──────────────────────────────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
	log    *logger.Logger
}

func NewAPIClient(apiKey, model string, log *logger.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model, log: log}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.7),
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

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn("retrying Anthropic API call", "wait", wait, "attempt", attempt+1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("Anthropic API attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient (local development) ─────────────────────────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content: "```json\n" + `{"headline":"[Mock] You are building momentum.",` +
			`"next_steps":["[Mock] Complete one more roadmap task today.","[Mock] Schedule a mock interview this week."],` +
			`"encouragement":"[Mock] Small steps every day add up."}` + "\n```",
		PromptTokens: 300,
		OutputTokens: 80,
	}, nil
}
