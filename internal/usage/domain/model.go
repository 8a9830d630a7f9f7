package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type MetricType string

const (
	MetricGeneration MetricType = "generation"
	MetricProductFAQ MetricType = "product_faq"
)

// MetricTypes lists every metric the ledger accepts.
var MetricTypes = []MetricType{MetricGeneration, MetricProductFAQ}

func (m MetricType) Valid() bool {
	switch m {
	case MetricGeneration, MetricProductFAQ:
		return true
	default:
		return false
	}
}

// UsageRecord is one counter per (shop, metric, billing period).
type UsageRecord struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Shop          string       `gorm:"not null;size:255;uniqueIndex:ux_usage_records_shop_type_period" json:"shop"`
	Type          MetricType   `gorm:"not null;size:32;uniqueIndex:ux_usage_records_shop_type_period" json:"type"`
	BillingPeriod string       `gorm:"not null;size:7;uniqueIndex:ux_usage_records_shop_type_period" json:"billing_period"`
	Count         int64        `gorm:"not null;default:0" json:"count"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}

// Usage is a shop's counters for one billing period. Metrics without a
// record read as zero.
type Usage struct {
	Period     string `json:"period"`
	Generation int64  `json:"generation"`
	ProductFAQ int64  `json:"product_faq"`
}

func (u *Usage) Add(metric MetricType, n int64) {
	switch metric {
	case MetricGeneration:
		u.Generation += n
	case MetricProductFAQ:
		u.ProductFAQ += n
	}
}

var (
	ErrInvalidShop       = errors.New("invalid_shop")
	ErrInvalidMetricType = errors.New("invalid_metric_type")
	ErrInvalidPeriod     = errors.New("invalid_period")
)
