package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/railzwaylabs/shopfaq/internal/plan/domain"
	"github.com/railzwaylabs/shopfaq/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) GetOrCreate(ctx context.Context, db *gorm.DB, shop string) (*domain.Subscription, error) {
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}

	existing, err := r.FindByShop(ctx, db, shop)
	if err != nil || existing != nil {
		return existing, err
	}

	now := time.Now().UTC()
	fresh := &domain.Subscription{
		ID:        r.genID.Generate(),
		Shop:      shop,
		Plan:      plandomain.PlanFree,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "shop"}}, DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	created, err := r.FindByShop(ctx, db, shop)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return created, nil
}

func (r *repo) FindByShop(ctx context.Context, db *gorm.DB, shop string) (*domain.Subscription, error) {
	var subs []domain.Subscription
	err := db.WithContext(ctx).
		Where("shop = ?", shop).
		Limit(1).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) (*domain.Subscription, error) {
	if sub == nil || sub.Shop == "" {
		return nil, domain.ErrInvalidShop
	}

	now := time.Now().UTC()
	row := *sub
	if row.ID == 0 {
		row.ID = r.genID.Generate()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan",
				"status",
				"external_charge_id",
				"external_confirmation_url",
				"pending_plan",
				"current_period_end",
				"updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}

	stored, err := r.FindByShop(ctx, db, sub.Shop)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return stored, nil
}

func (r *repo) ListByStatus(ctx context.Context, db *gorm.DB, status domain.Status) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Find(&subs).Error
	return subs, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, shop string) error {
	return db.WithContext(ctx).
		Where("shop = ?", shop).
		Delete(&domain.Subscription{}).Error
}
