package plan

import (
	"github.com/railzwaylabs/shopfaq/internal/plan/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.catalog",
	fx.Provide(domain.DefaultCatalog),
)
