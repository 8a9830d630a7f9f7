package billing

import (
	"github.com/railzwaylabs/shopfaq/internal/billing/adapters"
	"github.com/railzwaylabs/shopfaq/internal/billing/adapters/sandbox"
	"github.com/railzwaylabs/shopfaq/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			sandbox.NewFactory(),
		)
	}),
	fx.Provide(service.NewProvider),
	fx.Provide(service.New),
)
