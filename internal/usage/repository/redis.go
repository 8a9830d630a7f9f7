package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/railzwaylabs/shopfaq/internal/usage/domain"
	"github.com/redis/go-redis/v9"
)

type redisLedger struct {
	rdb *redis.Client
}

// NewRedisLedger keeps one INCR counter per usage:{shop}:{type}:{period}.
// Keys never expire; a per-shop set indexes the recorded periods.
func NewRedisLedger(rdb *redis.Client) domain.Ledger {
	return &redisLedger{rdb: rdb}
}

func counterKey(shop string, metric domain.MetricType, period string) string {
	return fmt.Sprintf("usage:%s:%s:%s", shop, metric, period)
}

func periodsKey(shop string) string {
	return fmt.Sprintf("usage:%s:periods", shop)
}

func (l *redisLedger) Increment(ctx context.Context, shop string, metric domain.MetricType, period string) error {
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, counterKey(shop, metric, period))
		pipe.SAdd(ctx, periodsKey(shop), period)
		return nil
	})
	return err
}

func (l *redisLedger) Get(ctx context.Context, shop, period string) (domain.Usage, error) {
	keys := make([]string, len(domain.MetricTypes))
	for i, m := range domain.MetricTypes {
		keys[i] = counterKey(shop, m, period)
	}

	vals, err := l.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.Usage{}, err
	}

	usage := domain.Usage{Period: period}
	for i, v := range vals {
		n, err := parseCounter(v)
		if err != nil {
			return domain.Usage{}, fmt.Errorf("usage counter %s: %w", keys[i], err)
		}
		usage.Add(domain.MetricTypes[i], n)
	}
	return usage, nil
}

func (l *redisLedger) History(ctx context.Context, shop string) ([]domain.Usage, error) {
	periods, err := l.rdb.SMembers(ctx, periodsKey(shop)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	history := make([]domain.Usage, 0, len(periods))
	for _, period := range periods {
		usage, err := l.Get(ctx, shop, period)
		if err != nil {
			return nil, err
		}
		history = append(history, usage)
	}
	return history, nil
}

func parseCounter(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
}
