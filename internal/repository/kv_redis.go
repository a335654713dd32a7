package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type redisKVStore struct {
	redisClient *redis.Client
	namespace   string
}

// NewRedisKVStore 创建 Redis 存储，键格式为 <namespace>:<key>。
func NewRedisKVStore(redisClient *redis.Client, namespace string) KVStore {
	return &redisKVStore{redisClient: redisClient, namespace: namespace}
}

func (r *redisKVStore) key(k string) string {
	return fmt.Sprintf("%s:%s", r.namespace, k)
}

func (r *redisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.redisClient.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

// SetMany 使用 MULTI/EXEC 一次写入
func (r *redisKVStore) SetMany(ctx context.Context, values map[string]string) error {
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set values: %w", err)
	}
	return nil
}

func (r *redisKVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.redisClient.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (r *redisKVStore) Close() error {
	return r.redisClient.Close()
}
