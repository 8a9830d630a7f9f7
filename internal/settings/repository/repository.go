package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/shopfaq/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) FindByShop(ctx context.Context, db *gorm.DB, shop string) (*domain.ShopSettings, error) {
	var rows []domain.ShopSettings
	if err := db.WithContext(ctx).Where("shop = ?", shop).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, s *domain.ShopSettings) error {
	now := time.Now().UTC()
	if s.ID == 0 {
		s.ID = r.genID.Generate()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns([]string{"ai_provider", "model", "faq_count", "auto_generate", "api_key", "updated_at"}),
		}).
		Create(s).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, shop string) error {
	return db.WithContext(ctx).Where("shop = ?", shop).Delete(&domain.ShopSettings{}).Error
}
