package faq

import (
	"context"

	entitlementdomain "github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"github.com/railzwaylabs/shopfaq/internal/faq/generator"
	"github.com/railzwaylabs/shopfaq/internal/faq/repository"
	"github.com/railzwaylabs/shopfaq/internal/faq/service"
	"github.com/railzwaylabs/shopfaq/internal/faq/storefront"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("faq.service",
	fx.Provide(repository.Provide),
	fx.Provide(generator.NewFactory),
	fx.Provide(func() domain.Storefront { return storefront.NewMemory() }),
	fx.Provide(newPublishedCounter),
	fx.Provide(service.New),
)

// publishedCounter reads the repository directly. The entitlement guard
// cannot depend on the faq service, which itself depends on the guard.
type publishedCounter struct {
	db   *gorm.DB
	repo domain.Repository
}

func newPublishedCounter(db *gorm.DB, repo domain.Repository) entitlementdomain.PublishedCounter {
	return &publishedCounter{db: db, repo: repo}
}

func (c *publishedCounter) CountPublished(ctx context.Context, shop string) (int64, error) {
	return c.repo.CountPublished(ctx, c.db, shop)
}
