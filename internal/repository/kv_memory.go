package repository

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"
)

type memoryKVStore struct {
	namespace string
	mu        sync.Mutex
	items     *cache.Cache
}

// NewMemoryKVStore 创建基于 go-cache 的进程内存储，数据不过期，进程退出即丢失。
func NewMemoryKVStore(namespace string) KVStore {
	return &memoryKVStore{
		namespace: namespace,
		items:     cache.New(cache.NoExpiration, 0),
	}
}

func (s *memoryKVStore) key(k string) string {
	return s.namespace + ":" + k
}

func (s *memoryKVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items.Get(s.key(key))
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	return str, ok, nil
}

func (s *memoryKVStore) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.items.Set(s.key(k), v, cache.NoExpiration)
	}
	return nil
}

func (s *memoryKVStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.items.Delete(s.key(k))
	}
	return nil
}

func (s *memoryKVStore) Close() error {
	s.items.Flush()
	return nil
}
