package domain

import "context"

type Service interface {
	CurrentPeriodKey(ctx context.Context) string
	Increment(ctx context.Context, shop string, metric MetricType) error
	GetUsage(ctx context.Context, shop string) (Usage, error)
	GetUsageForPeriod(ctx context.Context, shop, period string) (Usage, error)
	History(ctx context.Context, shop string) ([]Usage, error)
}
