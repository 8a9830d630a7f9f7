package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(New),
)

type Clock interface {
	Now(ctx context.Context) time.Time
}

// New returns the wall clock used outside tests.
func New() Clock {
	return SystemClock{}
}

type timeKey struct{}

// WithTime pins the time observed by SystemClock for calls made with ctx.
// Operators use it to replay a request at a chosen instant (for example a
// period boundary) without touching the process clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// FromContext returns the pinned time, if any.
func FromContext(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(timeKey{}).(time.Time)
	return t, ok
}
