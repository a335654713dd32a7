package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"quickplan-go/internal/model"
	"quickplan-go/pkg/log"
)

// 持久化的键
const (
	KeyToken        = "token"
	KeyRefreshToken = "refresh_token"
	KeyUserInfo     = "user_info"
	KeyIsLoggedIn   = "is_logged_in"
)

var allCredentialKeys = []string{KeyToken, KeyRefreshToken, KeyUserInfo, KeyIsLoggedIn}

// CredentialStore 保存会话 token、refresh token 与用户信息。
// 三者一起写入、一起清除；读失败或数据损坏时按不存在处理。
type CredentialStore struct {
	mu sync.Mutex
	kv KVStore
}

// NewCredentialStore 创建一个 CredentialStore 实例。
func NewCredentialStore(kv KVStore) *CredentialStore {
	return &CredentialStore{kv: kv}
}

// Save 一次性写入 token、refresh token、用户信息并置登录标记。
func (s *CredentialStore) Save(ctx context.Context, token, refreshToken string, profile model.UserProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("序列化用户信息失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.kv.SetMany(ctx, map[string]string{
		KeyToken:        token,
		KeyRefreshToken: refreshToken,
		KeyUserInfo:     string(profileJSON),
		KeyIsLoggedIn:   "true",
	})
	if err != nil {
		return fmt.Errorf("保存登录信息失败: %w", err)
	}
	return nil
}

// UpdateToken 只更新两个 token，用户信息保持不变。
func (s *CredentialStore) UpdateToken(ctx context.Context, token, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.SetMany(ctx, map[string]string{KeyToken: token, KeyRefreshToken: refreshToken}); err != nil {
		return fmt.Errorf("更新 token 失败: %w", err)
	}
	return nil
}

// Token 返回访问 token
func (s *CredentialStore) Token(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyToken)
}

// RefreshToken 返回 refresh token
func (s *CredentialStore) RefreshToken(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyRefreshToken)
}

// Profile 返回缓存的用户信息，不存在或无法解析时返回 nil。
func (s *CredentialStore) Profile(ctx context.Context) *model.UserProfile {
	raw, ok := s.get(ctx, KeyUserInfo)
	if !ok {
		return nil
	}
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		log.Warnf("[CredentialStore] 用户信息已损坏，按未登录处理: %v", err)
		return nil
	}
	return &profile
}

// IsLoggedIn 登录标记为真且 token 存在
func (s *CredentialStore) IsLoggedIn(ctx context.Context) bool {
	flag, ok := s.get(ctx, KeyIsLoggedIn)
	if !ok || flag != "true" {
		return false
	}
	_, hasToken := s.get(ctx, KeyToken)
	return hasToken
}

// Clear 清除全部登录信息
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, allCredentialKeys...); err != nil {
		return fmt.Errorf("清除登录信息失败: %w", err)
	}
	return nil
}

func (s *CredentialStore) get(ctx context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Warnf("[CredentialStore] 读取 %s 失败: %v", key, err)
		return "", false
	}
	return v, ok
}
