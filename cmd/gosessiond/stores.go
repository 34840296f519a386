package main

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/internal/appconfig"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/store/memory"
	"github.com/MrEthical07/goSession/store/natsstore"
	"github.com/MrEthical07/goSession/store/postgres"
	"github.com/MrEthical07/goSession/store/redisstore"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backend is an opened user store with its health probe and cleanup.
type backend struct {
	store store.Store
	ready func(ctx context.Context) error
	close func()
}

func openRedis(ctx context.Context, cfg appconfig.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// openStore opens the driver named by driver. rdb is reused for the redis
// driver when the caller already holds a client.
func openStore(ctx context.Context, driver string, cfg *appconfig.Config, rdb *redis.Client, log *zap.Logger) (*backend, error) {
	switch driver {
	case "memory":
		log.Warn("using in-memory user store; users are lost on restart")
		return &backend{store: memory.New(), close: func() {}}, nil

	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis driver requires redis.addr")
		}
		return &backend{
			store: redisstore.New(rdb, cfg.Redis.Prefix),
			ready: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			close: func() {},
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres.AsPoolConfig())
		if err != nil {
			return nil, err
		}
		return &backend{store: postgres.NewUserStore(db), ready: db.Ping, close: db.Close}, nil

	case "nats":
		client, err := natsstore.Dial(cfg.NATS.URL, cfg.NATS.Prefix,
			nats.Name(cfg.App.Name),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return &backend{
			store: client,
			ready: func(context.Context) error { return client.Ready() },
			close: client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
