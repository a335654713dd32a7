package repository

import (
	"context"
	"path/filepath"
	"testing"

	"quickplan-go/internal/model"
	"quickplan-go/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends 返回三种后端，测试对每种都跑一遍
func backends(t *testing.T) map[string]KVStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteKVStore(ctx, db, "user_prefs")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	stores := map[string]KVStore{
		"memory": NewMemoryKVStore("user_prefs"),
		"sqlite": sqliteStore,
		"redis":  NewRedisKVStore(rdb, "user_prefs"),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func strPtr(s string) *string { return &s }

func TestCredentialStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	profile := model.UserProfile{
		UserID:    "u1",
		Email:     strPtr("a@b.com"),
		CreatedAt: "2024-01-01 00:00:00",
		LoginType: model.LoginTypeEmail,
	}

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewCredentialStore(kv)
			assert.False(t, store.IsLoggedIn(ctx))
			assert.Nil(t, store.Profile(ctx))

			require.NoError(t, store.Save(ctx, "tok", "ref", profile))
			assert.True(t, store.IsLoggedIn(ctx))
			token, ok := store.Token(ctx)
			assert.True(t, ok)
			assert.Equal(t, "tok", token)
			got := store.Profile(ctx)
			require.NotNil(t, got)
			assert.Equal(t, profile, *got)

			require.NoError(t, store.UpdateToken(ctx, "tok2", "ref2"))
			token, _ = store.Token(ctx)
			refresh, _ := store.RefreshToken(ctx)
			assert.Equal(t, "tok2", token)
			assert.Equal(t, "ref2", refresh)
			assert.Equal(t, "u1", store.Profile(ctx).UserID)

			require.NoError(t, store.Clear(ctx))
			assert.False(t, store.IsLoggedIn(ctx))
			_, ok = store.Token(ctx)
			assert.False(t, ok)
			assert.Nil(t, store.Profile(ctx))
		})
	}
}

func TestIsLoggedInRequiresToken(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore("user_prefs")
	store := NewCredentialStore(kv)

	require.NoError(t, kv.SetMany(ctx, map[string]string{KeyIsLoggedIn: "true"}))
	assert.False(t, store.IsLoggedIn(ctx))

	require.NoError(t, kv.SetMany(ctx, map[string]string{KeyToken: "tok", KeyIsLoggedIn: "false"}))
	assert.False(t, store.IsLoggedIn(ctx))
}

func TestCorruptProfileIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKVStore("user_prefs")
	store := NewCredentialStore(kv)

	require.NoError(t, kv.SetMany(ctx, map[string]string{KeyUserInfo: "{not json"}))
	assert.Nil(t, store.Profile(ctx))
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	a := NewCredentialStore(NewRedisKVStore(rdb, "a"))
	b := NewCredentialStore(NewRedisKVStore(rdb, "b"))
	require.NoError(t, a.Save(ctx, "tok", "ref", model.UserProfile{UserID: "u"}))

	assert.True(t, a.IsLoggedIn(ctx))
	assert.False(t, b.IsLoggedIn(ctx))
	assert.True(t, mr.Exists("a:token"))
}
