package service

import (
	"context"
	"strings"

	"github.com/railzwaylabs/shopfaq/internal/security/vault"
	"github.com/railzwaylabs/shopfaq/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Vault vault.Provider
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	vault vault.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		repo:  p.Repo,
		vault: p.Vault,
	}
}

func (s *Service) Get(ctx context.Context, shop string) (domain.ShopSettings, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.ShopSettings{}, domain.ErrInvalidShop
	}

	stored, err := s.repo.FindByShop(ctx, s.db, shop)
	if err != nil {
		return domain.ShopSettings{}, err
	}
	if stored == nil {
		return domain.Defaults(shop), nil
	}

	out := *stored
	out.APIKey = s.decrypt(stored.Shop, stored.APIKey)
	return out, nil
}

func (s *Service) Save(ctx context.Context, shop string, req domain.SaveRequest) (domain.ShopSettings, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.ShopSettings{}, domain.ErrInvalidShop
	}

	provider := domain.AIProvider(strings.ToLower(strings.TrimSpace(string(req.AIProvider))))
	if provider == "" {
		provider = domain.ProviderOpenAI
	}
	if !provider.Valid() {
		return domain.ShopSettings{}, domain.ErrInvalidProvider
	}

	count := req.FAQCount
	if count == 0 {
		count = domain.DefaultFAQCount
	}
	if count < domain.MinFAQCount || count > domain.MaxFAQCount {
		return domain.ShopSettings{}, domain.ErrInvalidFAQCount
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = provider.DefaultModel()
	}

	stored, err := s.repo.FindByShop(ctx, s.db, shop)
	if err != nil {
		return domain.ShopSettings{}, err
	}
	next := domain.Defaults(shop)
	if stored != nil {
		next = *stored
	}
	next.AIProvider = provider
	next.Model = model
	next.FAQCount = count
	next.AutoGenerate = req.AutoGenerate

	if key := strings.TrimSpace(req.APIKey); key != "" {
		sealed, err := s.vault.Seal(key, next.Shop)
		if err != nil {
			return domain.ShopSettings{}, err
		}
		next.APIKey = sealed
	}

	if err := s.repo.Upsert(ctx, s.db, &next); err != nil {
		return domain.ShopSettings{}, err
	}
	s.log.Info("settings saved",
		zap.String("shop", shop),
		zap.String("provider", string(provider)),
		zap.String("model", model),
		zap.Bool("api_key_updated", req.APIKey != ""),
	)

	next.APIKey = s.decrypt(next.Shop, next.APIKey)
	return next, nil
}

func (s *Service) Delete(ctx context.Context, shop string) error {
	return s.repo.Delete(ctx, s.db, strings.TrimSpace(shop))
}

// decrypt returns raw stored text when it is not a sealed value, for keys
// saved before encryption was enabled.
func (s *Service) decrypt(shop, stored string) string {
	if !vault.IsSealed(stored) {
		return stored
	}
	plain, err := s.vault.Open(stored, shop)
	if err != nil {
		s.log.Warn("api key decryption failed", zap.String("shop", shop), zap.Error(err))
		return ""
	}
	return plain
}
