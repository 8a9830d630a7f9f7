package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// GetOrCreate returns the shop's record, creating {free, active} when
	// none exists. Concurrent first calls converge on one row.
	GetOrCreate(ctx context.Context, db *gorm.DB, shop string) (*Subscription, error)
	FindByShop(ctx context.Context, db *gorm.DB, shop string) (*Subscription, error)
	// Upsert writes sub keyed by shop. Last write wins.
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) (*Subscription, error)
	ListByStatus(ctx context.Context, db *gorm.DB, status Status) ([]Subscription, error)
	Delete(ctx context.Context, db *gorm.DB, shop string) error
}
