package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// MoonshotClient implements Client for Moonshot AI (Kimi) through its
// OpenAI-compatible chat completions endpoint.
type MoonshotClient struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

// NewMoonshotClient creates a new Moonshot client
func NewMoonshotClient(config *Config, apiKey string) (*MoonshotClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = config.BaseURL
	if clientConfig.BaseURL == "" {
		clientConfig.BaseURL = DefaultMoonshotBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &MoonshotClient{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		limiter: newLimiter(config.RequestsPerSecond),
	}, nil
}

// GenerateContent generates text content using the specified model tier
func (c *MoonshotClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.complete(ctx, prompt, tier, nil)
}

// GenerateJSON asks for a JSON object response (response_format json_object).
func (c *MoonshotClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.complete(ctx, prompt, tier, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *MoonshotClient) complete(ctx context.Context, prompt string, tier ModelTier, format *openai.ChatCompletionResponseFormat) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    c.config.Temperature,
		ResponseFormat: format,
	})
	if err != nil {
		return "", describeAPIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// GetModel returns the model name for a tier
func (c *MoonshotClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (c *MoonshotClient) Close() error {
	return nil
}

// describeAPIError turns go-openai errors into messages that name the HTTP
// status, keeping the original error for errors.As.
func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("API request failed with status %d: %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("API request failed with status %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("API request failed: %w", err)
}

var _ Client = (*MoonshotClient)(nil)
