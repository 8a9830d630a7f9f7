package usage

import (
	"github.com/railzwaylabs/shopfaq/internal/usage/repository"
	"github.com/railzwaylabs/shopfaq/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
