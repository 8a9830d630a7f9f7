package domain

import "context"

// Ledger is the storage behind the usage service. Increment must be atomic
// at the storage layer; callers never read-modify-write.
type Ledger interface {
	Increment(ctx context.Context, shop string, metric MetricType, period string) error
	Get(ctx context.Context, shop, period string) (Usage, error)
	// History returns every recorded period for shop, newest first.
	History(ctx context.Context, shop string) ([]Usage, error)
}
