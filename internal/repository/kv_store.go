// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"

	"quickplan-go/internal/config"
	"quickplan-go/pkg/database"
)

// KVStore 在一个命名空间下保存字符串键值。SetMany 要么全部写入，要么全部不写。
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// OpenKVStore 按 credentials.backend 选择后端：memory、sqlite 或 redis。
func OpenKVStore(ctx context.Context, cfg config.CredentialsConfig) (KVStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryKVStore(cfg.Namespace), nil
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteKVStore(ctx, db, cfg.Namespace)
	case "redis":
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisKVStore(rdb, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}
