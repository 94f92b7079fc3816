package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis opens the shared Redis client backing the cost cache, the
// cost-refresh job queue and its DLQ. Connectivity is verified up front so
// a bad address fails the boot rather than the first cache read.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	// Every pool worker parks a connection in BRPOP; keep a couple of idle
	// conns warm so the request path never waits on a fresh dial.
	opts.MinIdleConns = 2

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}
