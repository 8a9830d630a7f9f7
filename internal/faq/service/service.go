package service

import (
	"context"
	"strings"

	entitlementdomain "github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"github.com/railzwaylabs/shopfaq/internal/observability"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Guard      entitlementdomain.Service
	Usage      usagedomain.Service
	Settings   settingsdomain.Service
	Generators domain.GeneratorFactory
	Storefront domain.Storefront
	Metrics    *observability.Metrics
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	guard      entitlementdomain.Service
	usage      usagedomain.Service
	settings   settingsdomain.Service
	generators domain.GeneratorFactory
	storefront domain.Storefront
	metrics    *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("faq.service"),
		repo:       p.Repo,
		guard:      p.Guard,
		usage:      p.Usage,
		settings:   p.Settings,
		generators: p.Generators,
		storefront: p.Storefront,
		metrics:    p.Metrics,
	}
}

// Generate drafts FAQs for product. The generation is metered only after the
// generator succeeded, so a crash in between under-counts.
func (s *Service) Generate(ctx context.Context, shop string, product domain.Product) (*domain.ProductFAQ, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	product.ID = strings.TrimSpace(product.ID)
	if product.ID == "" || strings.TrimSpace(product.Title) == "" {
		return nil, domain.ErrInvalidProduct
	}

	decision, err := s.guard.CanPerform(ctx, shop, entitlementdomain.ActionGenerate)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &entitlementdomain.DeniedError{Decision: decision}
	}

	settings, err := s.settings.Get(ctx, shop)
	if err != nil {
		return nil, err
	}
	if !settings.HasAPIKey() {
		return nil, domain.ErrMissingAPIKey
	}

	gen, err := s.generators.NewGenerator(settings.AIProvider, settings.APIKey, settings.Model)
	if err != nil {
		return nil, err
	}

	qas, err := gen.Generate(ctx, product, settings.FAQCount)
	if err != nil {
		s.observeGeneration(settings.AIProvider, "error")
		s.log.Warn("faq generation failed",
			zap.String("shop", shop),
			zap.String("product_id", product.ID),
			zap.String("provider", string(settings.AIProvider)),
			zap.Error(err),
		)
		return nil, err
	}
	s.observeGeneration(settings.AIProvider, "success")

	if err := s.usage.Increment(ctx, shop, usagedomain.MetricGeneration); err != nil {
		s.log.Error("usage increment failed after generation",
			zap.String("shop", shop),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
	}

	existing, err := s.repo.Find(ctx, s.db, shop, product.ID)
	if err != nil {
		return nil, err
	}
	draft := &domain.ProductFAQ{Shop: shop, ProductID: product.ID}
	if existing != nil {
		draft = existing
		if existing.IsPublished {
			// A fresh draft replaces the published set. The storefront is
			// cleared with it so rendered products always match the count.
			if err := s.storefront.DeleteFAQs(ctx, shop, product.ID); err != nil {
				return nil, err
			}
		}
	}
	draft.IsPublished = false
	if err := draft.SetItems(qas); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, s.db, draft)
}

// Publish writes faqs to the storefront. A product that is already published
// may always be re-saved, so editing never consumes product quota.
func (s *Service) Publish(ctx context.Context, shop, productID string, faqs []domain.QA) (*domain.ProductFAQ, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.ErrInvalidProduct
	}
	faqs = domain.CleanQAs(faqs)
	if len(faqs) == 0 {
		return nil, domain.ErrEmptyFAQs
	}

	existing, err := s.repo.Find(ctx, s.db, shop, productID)
	if err != nil {
		return nil, err
	}

	decision, err := s.guard.CanPerform(ctx, shop, entitlementdomain.ActionPublishFAQ)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed && (existing == nil || !existing.IsPublished) {
		return nil, &entitlementdomain.DeniedError{Decision: decision}
	}

	if err := s.storefront.SaveFAQs(ctx, shop, productID, faqs); err != nil {
		return nil, err
	}

	row := &domain.ProductFAQ{Shop: shop, ProductID: productID}
	if existing != nil {
		row = existing
	}
	row.IsPublished = true
	if err := row.SetItems(faqs); err != nil {
		return nil, err
	}

	saved, err := s.repo.Upsert(ctx, s.db, row)
	if err != nil {
		return nil, err
	}
	s.log.Info("faqs published",
		zap.String("shop", shop),
		zap.String("product_id", productID),
		zap.Int("count", len(faqs)),
	)
	return saved, nil
}

// Unpublish takes the product off the storefront but keeps its FAQs as a
// draft. The product stops counting against the plan's product limit.
func (s *Service) Unpublish(ctx context.Context, shop, productID string) (*domain.ProductFAQ, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.ErrInvalidProduct
	}

	row, err := s.repo.Find(ctx, s.db, shop, productID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrFAQNotFound
	}
	if !row.IsPublished {
		return row, nil
	}

	if err := s.storefront.DeleteFAQs(ctx, shop, productID); err != nil {
		return nil, err
	}
	row.IsPublished = false
	saved, err := s.repo.Upsert(ctx, s.db, row)
	if err != nil {
		return nil, err
	}
	s.log.Info("faqs unpublished",
		zap.String("shop", shop),
		zap.String("product_id", productID),
	)
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, shop, productID string) error {
	shop = normalizeShop(shop)
	if shop == "" {
		return domain.ErrInvalidShop
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.ErrInvalidProduct
	}

	if err := s.storefront.DeleteFAQs(ctx, shop, productID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, shop, productID)
}

func (s *Service) Get(ctx context.Context, shop, productID string) (*domain.ProductFAQ, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	row, err := s.repo.Find(ctx, s.db, shop, strings.TrimSpace(productID))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.ErrFAQNotFound
	}
	return row, nil
}

func (s *Service) List(ctx context.Context, shop string) ([]domain.ProductFAQ, error) {
	shop = normalizeShop(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	return s.repo.List(ctx, s.db, shop)
}

// PurgeShop drops every FAQ record of an uninstalled shop. Storefront data
// goes away with the app installation.
func (s *Service) PurgeShop(ctx context.Context, shop string) error {
	shop = normalizeShop(shop)
	if shop == "" {
		return domain.ErrInvalidShop
	}
	return s.repo.DeleteByShop(ctx, s.db, shop)
}

func (s *Service) CountPublished(ctx context.Context, shop string) (int64, error) {
	return s.repo.CountPublished(ctx, s.db, normalizeShop(shop))
}

func (s *Service) observeGeneration(provider settingsdomain.AIProvider, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.FAQGenerations.WithLabelValues(string(provider), result).Inc()
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
