package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"github.com/sashabaranov/go-openai"
)

const (
	temperature = 0.7
	maxTokens   = 2000
)

// Chat generates FAQs through an OpenAI-compatible chat completions API.
type Chat struct {
	api      *openai.Client
	model    string
	jsonMode bool
	timeout  time.Duration
}

type ChatOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// JSONMode requests response_format json_object. Only OpenAI honours it.
	JSONMode bool
	Timeout  time.Duration
}

func NewChat(opts ChatOptions) *Chat {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Chat{
		api:      openai.NewClientWithConfig(cfg),
		model:    opts.Model,
		jsonMode: opts.JSONMode,
		timeout:  opts.Timeout,
	}
}

func (c *Chat) Generate(ctx context.Context, product domain.Product, count int) ([]domain.QA, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(product, count)
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", domain.ErrGeneratorInvalidOutput)
	}
	return ParseQAs(resp.Choices[0].Message.Content, count)
}

func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", domain.ErrGeneratorAuth, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", domain.ErrGeneratorRateLimited, err)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %v", domain.ErrGeneratorRequestRejected, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	}
}
