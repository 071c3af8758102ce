package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const SettingsKey = "settings"

const SettingsTTL = 5 * time.Minute

func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb != nil && len(keys) > 0 {
		rdb.Del(ctx, keys...)
	}
}

func InvalidateSettings(ctx context.Context, rdb *redis.Client) {
	Invalidate(ctx, rdb, SettingsKey)
}
