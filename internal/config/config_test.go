package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, DriverRedis, cfg.CacheDriver)
	assert.Equal(t, 10*time.Minute, cfg.FeedPageTTL)
	assert.Equal(t, time.Minute, cfg.FeedLatestTTL)
	assert.Equal(t, 5*time.Second, cfg.FeedPopulateTimeout)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
	assert.True(t, cfg.DBAutoMigrate)
	assert.Equal(t, 3, cfg.BloomHashes)
	assert.Empty(t, cfg.NatsURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("FEED_PAGE_TTL", "30")
	t.Setenv("RECONCILE_INTERVAL", "0")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("CACHE_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, DriverMemory, cfg.CacheDriver)
	assert.Equal(t, 30*time.Second, cfg.FeedPageTTL)
	assert.Zero(t, cfg.ReconcileInterval)
	assert.False(t, cfg.DBAutoMigrate)
	assert.Equal(t, 0, cfg.CacheDB)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no secret", map[string]string{}, "JWT_SECRET"},
		{"bad store", map[string]string{"JWT_SECRET": "s", "STORE_DRIVER": "postgres"}, "STORE_DRIVER"},
		{"bad cache", map[string]string{"JWT_SECRET": "s", "CACHE_DRIVER": "memcached"}, "CACHE_DRIVER"},
		{"no page ttl", map[string]string{"JWT_SECRET": "s", "FEED_PAGE_TTL": "0"}, "FEED_PAGE_TTL"},
		{"no latest ttl", map[string]string{"JWT_SECRET": "s", "CACHE_DRIVER": "redis", "FEED_LATEST_TTL": "0"}, "FEED_LATEST_TTL"},
		{"too many bloom hashes", map[string]string{"JWT_SECRET": "s", "CACHE_DRIVER": "redis", "BLOOM_HASHES": "17"}, "BLOOM_HASHES"},
		{"no populate timeout", map[string]string{"JWT_SECRET": "s", "FEED_POPULATE_TIMEOUT": "0"}, "FEED_POPULATE_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MemoryCacheAllowsZeroTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("FEED_LATEST_TTL", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.FeedLatestTTL)
}

func TestDSN(t *testing.T) {
	cfg := Config{
		DatabaseUser: "root",
		DatabasePass: "pw",
		DatabaseHost: "db",
		DatabasePort: "3306",
		DatabaseName: "feed",
		DatabaseLoc:  "Asia/Shanghai",
	}
	assert.Equal(t, "root:pw@tcp(db:3306)/feed?loc=Asia%2FShanghai&parseTime=1", cfg.DSN())
	assert.Equal(t, "cache:6380", Config{CacheHost: "cache", CachePort: "6380"}.CacheAddress())
}

func TestConfigureLogger(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())
	defer logrus.SetFormatter(logrus.StandardLogger().Formatter)

	Config{LogLevel: "debug", LogFormat: "json"}.ConfigureLogger()
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	Config{LogLevel: "chatty", LogFormat: "text"}.ConfigureLogger()
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}
