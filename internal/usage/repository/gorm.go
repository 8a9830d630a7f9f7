package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormLedger struct {
	db    *gorm.DB
	genID *snowflake.Node
}

// NewGormLedger stores counters in the usage_records table.
func NewGormLedger(db *gorm.DB, genID *snowflake.Node) domain.Ledger {
	return &gormLedger{db: db, genID: genID}
}

func (l *gormLedger) Increment(ctx context.Context, shop string, metric domain.MetricType, period string) error {
	now := time.Now().UTC()
	record := domain.UsageRecord{
		ID:            l.genID.Generate(),
		Shop:          shop,
		Type:          metric,
		BillingPeriod: period,
		Count:         1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "shop"}, {Name: "type"}, {Name: "billing_period"}},
			DoUpdates: clause.Assignments(map[string]any{
				"count":      gorm.Expr("usage_records.count + 1"),
				"updated_at": now,
			}),
		}).
		Create(&record).Error
}

func (l *gormLedger) Get(ctx context.Context, shop, period string) (domain.Usage, error) {
	var records []domain.UsageRecord
	err := l.db.WithContext(ctx).
		Where("shop = ? AND billing_period = ?", shop, period).
		Find(&records).Error
	if err != nil {
		return domain.Usage{}, err
	}

	usage := domain.Usage{Period: period}
	for _, r := range records {
		usage.Add(r.Type, r.Count)
	}
	return usage, nil
}

func (l *gormLedger) History(ctx context.Context, shop string) ([]domain.Usage, error) {
	var records []domain.UsageRecord
	err := l.db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("billing_period DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	history := make([]domain.Usage, 0)
	for _, r := range records {
		if n := len(history); n == 0 || history[n-1].Period != r.BillingPeriod {
			history = append(history, domain.Usage{Period: r.BillingPeriod})
		}
		history[len(history)-1].Add(r.Type, r.Count)
	}
	return history, nil
}
