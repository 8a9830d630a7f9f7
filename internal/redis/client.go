package redis

import (
	"context"
	"fmt"

	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// NewClient connects to the shared Redis instance and closes it when the
// app stops. The connection is verified before returning.
func NewClient(lc fx.Lifecycle, cfg config.Config) (*redis.Client, error) {
	client, err := Dial(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func Dial(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
