package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"loan-service/internal/logger"
)

const defaultPingTimeout = 5 * time.Second

type Options struct {
	Addr        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

// Open returns a client only after Redis has answered a PING.
func Open(ctx context.Context, o Options) (*redis.Client, error) {
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	rdb := redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})

	pctx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", o.Addr, err)
	}
	logger.Info("redis connected", logger.Fields{"addr": o.Addr, "db": o.DB})
	return rdb, nil
}

// Pinger adapts the client to a readiness check.
func Pinger(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
