package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, shop, productID string) (*domain.ProductFAQ, error) {
	var rows []domain.ProductFAQ
	err := db.WithContext(ctx).
		Where("shop = ? AND product_id = ?", shop, productID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, shop string) ([]domain.ProductFAQ, error) {
	var rows []domain.ProductFAQ
	err := db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("updated_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, faq *domain.ProductFAQ) (*domain.ProductFAQ, error) {
	now := time.Now().UTC()
	row := *faq
	if row.ID == 0 {
		row.ID = r.genID.Generate()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"faqs", "is_published", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, db, faq.Shop, faq.ProductID)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, shop, productID string) error {
	return db.WithContext(ctx).
		Where("shop = ? AND product_id = ?", shop, productID).
		Delete(&domain.ProductFAQ{}).Error
}

func (r *repo) DeleteByShop(ctx context.Context, db *gorm.DB, shop string) error {
	return db.WithContext(ctx).
		Where("shop = ?", shop).
		Delete(&domain.ProductFAQ{}).Error
}

func (r *repo) CountPublished(ctx context.Context, db *gorm.DB, shop string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ProductFAQ{}).
		Where("shop = ? AND is_published = ?", shop, true).
		Count(&n).Error
	return n, err
}
