package generator

import (
	"strings"

	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
)

type Factory struct {
	cfg config.AIConfig
}

func NewFactory(cfg config.Config) domain.GeneratorFactory {
	return &Factory{cfg: cfg.AI}
}

func (f *Factory) NewGenerator(provider settingsdomain.AIProvider, apiKey, model string) (domain.Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if !provider.Valid() {
		return nil, settingsdomain.ErrInvalidProvider
	}
	if model == "" {
		model = provider.DefaultModel()
	}

	opts := ChatOptions{
		APIKey:  apiKey,
		Model:   model,
		Timeout: f.cfg.RequestTimeout,
	}
	switch provider {
	case settingsdomain.ProviderAnthropic:
		opts.BaseURL = f.cfg.AnthropicBaseURL
	default:
		opts.BaseURL = f.cfg.OpenAIBaseURL
		opts.JSONMode = true
	}
	return NewChat(opts), nil
}
