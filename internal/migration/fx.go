package migration

import (
	"context"

	"github.com/railzwaylabs/shopfaq/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Run(context.Background(), conn, cfg.Database.Driver); err != nil {
			return err
		}

		checksum, err := MigrationsChecksum()
		if err != nil {
			return err
		}
		log.Named("migration").Info("schema up to date",
			zap.String("driver", cfg.Database.Driver),
			zap.String("checksum", checksum))
		return nil
	}),
)
