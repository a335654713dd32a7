package backend

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// codeLimiter 按手机号限制验证码发送频率，每个号码 interval 内最多一次。
type codeLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

func newCodeLimiter(interval time.Duration) *codeLimiter {
	return &codeLimiter{limiters: make(map[string]*rate.Limiter), interval: interval}
}

// Allow 返回该号码当前是否允许发送
func (l *codeLimiter) Allow(phone string) bool {
	if l.interval <= 0 {
		return true
	}
	return l.get(phone).Allow()
}

func (l *codeLimiter) get(phone string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[phone]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// 拿到写锁后再检查一次
	if limiter, ok := l.limiters[phone]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(l.interval), 1)
	l.limiters[phone] = limiter
	return limiter
}
