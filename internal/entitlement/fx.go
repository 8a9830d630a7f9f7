package entitlement

import (
	"github.com/railzwaylabs/shopfaq/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(service.New),
)
