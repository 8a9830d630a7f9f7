package domain

import (
	"context"

	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	"gorm.io/gorm"
)

// Generator produces count question/answer pairs for product.
type Generator interface {
	Generate(ctx context.Context, product Product, count int) ([]QA, error)
}

type GeneratorFactory interface {
	NewGenerator(provider settingsdomain.AIProvider, apiKey, model string) (Generator, error)
}

// Storefront is the shop-side metafield store that renders published FAQs.
type Storefront interface {
	SaveFAQs(ctx context.Context, shop, productID string, faqs []QA) error
	DeleteFAQs(ctx context.Context, shop, productID string) error
}

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, shop, productID string) (*ProductFAQ, error)
	List(ctx context.Context, db *gorm.DB, shop string) ([]ProductFAQ, error)
	Upsert(ctx context.Context, db *gorm.DB, faq *ProductFAQ) (*ProductFAQ, error)
	Delete(ctx context.Context, db *gorm.DB, shop, productID string) error
	DeleteByShop(ctx context.Context, db *gorm.DB, shop string) error
	CountPublished(ctx context.Context, db *gorm.DB, shop string) (int64, error)
}

type Service interface {
	Generate(ctx context.Context, shop string, product Product) (*ProductFAQ, error)
	Publish(ctx context.Context, shop, productID string, faqs []QA) (*ProductFAQ, error)
	Unpublish(ctx context.Context, shop, productID string) (*ProductFAQ, error)
	Delete(ctx context.Context, shop, productID string) error
	Get(ctx context.Context, shop, productID string) (*ProductFAQ, error)
	List(ctx context.Context, shop string) ([]ProductFAQ, error)
	PurgeShop(ctx context.Context, shop string) error
	CountPublished(ctx context.Context, shop string) (int64, error)
}
