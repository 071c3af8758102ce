package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Value int `json:"value"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCacheAside(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			fetches++
			dest.Value = 42
			return nil
		}
	}

	var first payload
	require.NoError(t, CacheAside(ctx, rdb, SettingsKey, &first, SettingsTTL, fetch(&first)))
	assert.Equal(t, 42, first.Value)
	assert.True(t, mr.Exists(SettingsKey))
	assert.Equal(t, SettingsTTL, mr.TTL(SettingsKey))

	var second payload
	require.NoError(t, CacheAside(ctx, rdb, SettingsKey, &second, SettingsTTL, fetch(&second)))
	assert.Equal(t, 42, second.Value)
	assert.Equal(t, 1, fetches, "second read is served from cache")

	InvalidateSettings(ctx, rdb)
	assert.False(t, mr.Exists(SettingsKey))

}

func TestCacheAside_FetchError(t *testing.T) {
	mr, rdb := setupRedis(t)
	var dest payload
	err := CacheAside(context.Background(), rdb, "k", &dest, time.Minute, func() error { return errors.New("db down") })
	assert.Error(t, err)
	assert.False(t, mr.Exists("k"))
}

func TestCacheAside_RedisDown(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	var dest payload
	err := CacheAside(context.Background(), rdb, "k", &dest, time.Minute, func() error {
		dest.Value = 7
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, dest.Value)
}

func TestNilClient(t *testing.T) {
	found, err := GetJSON(context.Background(), nil, "k", &payload{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(context.Background(), nil, "k", payload{}, time.Minute))
	InvalidateSettings(context.Background(), nil)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := Connect(mr.Addr(), zap.NewNop())
	require.NotNil(t, rdb)
	_ = rdb.Close()

	assert.Nil(t, Connect("redis://%zz", zap.NewNop()))
}
