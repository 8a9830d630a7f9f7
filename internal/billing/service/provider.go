package service

import (
	"github.com/railzwaylabs/shopfaq/internal/billing/adapters"
	"github.com/railzwaylabs/shopfaq/internal/billing/domain"
	"github.com/railzwaylabs/shopfaq/internal/config"
	"go.uber.org/zap"
)

// NewProvider builds the configured billing provider from the registry.
func NewProvider(cfg config.Config, registry *adapters.Registry, log *zap.Logger) (domain.Provider, error) {
	provider, err := registry.NewAdapter(cfg.Billing.Provider, domain.ProviderConfig{
		PublicBaseURL: cfg.Billing.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	log.Named("billing.provider").Info("billing provider ready",
		zap.String("provider", cfg.Billing.Provider),
		zap.Bool("test_mode", cfg.ChargesInTestMode()),
	)
	return provider, nil
}
