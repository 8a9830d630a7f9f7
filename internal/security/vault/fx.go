package vault

import (
	"fmt"

	"github.com/railzwaylabs/shopfaq/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// devKey is only used outside production when ENCRYPTION_KEY is unset.
const devKey = "shopfaq-development-key"

var Module = fx.Module("security.vault",
	fx.Provide(New),
)

func New(cfg config.Config, log *zap.Logger) (Provider, error) {
	key := cfg.Vault.AESKey
	if key == "" {
		if cfg.App.IsProduction() {
			return nil, fmt.Errorf("%w: ENCRYPTION_KEY is required in production", ErrInvalidKey)
		}
		log.Named("security.vault").Warn("ENCRYPTION_KEY not set, using development key")
		key = devKey
	}
	return NewAES(key)
}
