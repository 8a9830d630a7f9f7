package webhook

import (
	"github.com/railzwaylabs/shopfaq/internal/webhook/repository"
	"github.com/railzwaylabs/shopfaq/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
