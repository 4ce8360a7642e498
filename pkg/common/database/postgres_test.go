package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinic-console/pkg/common/config"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "clinic",
		PostgresPassword: "secret",
		PostgresDB:       "console",
		PostgresSSLMode:  "require",
	}
	assert.Equal(t, "host=db user=clinic password=secret dbname=console port=5433 sslmode=require", PostgresDSN(cfg))
}

func TestGormConfigTranslatesErrors(t *testing.T) {
	cfg := GormConfig()
	assert.True(t, cfg.TranslateError)
	assert.Equal(t, time.UTC, cfg.NowFunc().Location())
}

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions(&config.Config{RedisHost: "cache", RedisPort: "6380", RedisPassword: "pw", RedisDB: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
}

func TestPingRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	client := redis.NewClient(RedisOptions(&config.Config{RedisHost: host, RedisPort: port}))
	defer client.Close()

	require.NoError(t, PingRedis(context.Background(), client))

	mr.Close()
	assert.Error(t, PingRedis(context.Background(), client))
}
