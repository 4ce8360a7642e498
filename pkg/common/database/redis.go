package database

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/clinic-console/pkg/common/config"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
)

// Cache lookups sit on the dashboard request path; a slow Redis must fail
// fast so the stats fall back to Postgres.
const (
	redisDialTimeout = 2 * time.Second
	redisIOTimeout   = 500 * time.Millisecond
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

func RedisOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
	}
}

// GetRedis returns the shared client. An unreachable server is only logged:
// the dashboard cache is optional and the health report shows it degraded.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		redisClient = redis.NewClient(RedisOptions(config.Load()))
		if err := PingRedis(context.Background(), redisClient); err != nil {
			logger.Log.WithError(err).Warn("Redis unavailable, dashboard cache disabled until it recovers")
			return
		}
		logger.Log.Info("Connected to Redis")
	})
	return redisClient
}

// PingRedis backs the redis component of the health report.
func PingRedis(ctx context.Context, client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func CloseRedis() error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Close()
}
