package repository

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/shopfaq/internal/config"
	redisclient "github.com/railzwaylabs/shopfaq/internal/redis"
	"github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node
	Log   *zap.Logger
}

// Provide selects the ledger backend from USAGE_BACKEND. Redis is only
// dialled when it is the selected backend.
func Provide(p Params) (domain.Ledger, error) {
	log := p.Log.Named("usage.ledger")

	switch p.Cfg.Usage.Backend {
	case "", "database":
		log.Info("usage ledger backend", zap.String("backend", "database"))
		return NewGormLedger(p.DB, p.GenID), nil
	case "redis":
		rdb, err := redisclient.NewClient(p.Lc, p.Cfg)
		if err != nil {
			return nil, err
		}
		log.Info("usage ledger backend", zap.String("backend", "redis"), zap.String("addr", p.Cfg.Redis.Addr))
		return NewRedisLedger(rdb), nil
	default:
		return nil, fmt.Errorf("%w: unsupported USAGE_BACKEND %q", config.ErrInvalidConfig, p.Cfg.Usage.Backend)
	}
}
