package backend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklists(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cases := map[string]TokenBlacklist{
		"memory": NewMemoryBlacklist(),
		"redis":  NewRedisBlacklist(rdb),
	}
	for name, bl := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			revoked, err := bl.IsRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, revoked)

			require.NoError(t, bl.Revoke(ctx, "jti-1", time.Hour))
			revoked, err = bl.IsRevoked(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, revoked)

			// 已过期的 token 无需记录
			require.NoError(t, bl.Revoke(ctx, "jti-2", -time.Second))
			revoked, err = bl.IsRevoked(ctx, "jti-2")
			require.NoError(t, err)
			assert.False(t, revoked)
		})
	}
}

func TestRedisBlacklistExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bl := NewRedisBlacklist(rdb)
	ctx := context.Background()
	require.NoError(t, bl.Revoke(ctx, "jti", time.Minute))
	assert.True(t, mr.Exists("blacklist:jti"))

	mr.FastForward(2 * time.Minute)
	revoked, err := bl.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}
