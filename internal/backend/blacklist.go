package backend

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

// TokenBlacklist 记录已注销的 token，条目在 token 过期后自动失效。
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type memoryBlacklist struct {
	entries *cache.Cache
}

// NewMemoryBlacklist 创建基于 go-cache 的黑名单
func NewMemoryBlacklist() TokenBlacklist {
	return &memoryBlacklist{entries: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (b *memoryBlacklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.entries.Set(tokenID, true, ttl)
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := b.entries.Get(tokenID)
	return found, nil
}

type redisBlacklist struct {
	rdb *redis.Client
}

// NewRedisBlacklist 创建基于 Redis 的黑名单，多个后端实例可以共享。
func NewRedisBlacklist(rdb *redis.Client) TokenBlacklist {
	return &redisBlacklist{rdb: rdb}
}

func (b *redisBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	// token 的剩余有效期作为 key 的过期时间
	return b.rdb.Set(ctx, "blacklist:"+tokenID, "true", ttl).Err()
}

func (b *redisBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.rdb.Exists(ctx, "blacklist:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
