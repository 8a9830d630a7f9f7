package settings

import (
	"github.com/railzwaylabs/shopfaq/internal/settings/repository"
	"github.com/railzwaylabs/shopfaq/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
