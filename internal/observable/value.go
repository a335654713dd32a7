// Package observable 提供可订阅的状态值，各个管理器用它对外暴露状态。
package observable

import "sync"

// Value 持有一个 T 类型的当前值，值每次变化时通知所有订阅者。
type Value[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]func(T)
}

// NewValue 以初始值创建一个 Value。
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial, subs: make(map[int]func(T))}
}

// Get 返回当前值
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set 更新当前值并同步通知订阅者。回调在锁外执行，可以安全地调用 Get。
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	callbacks := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		callbacks = append(callbacks, fn)
	}
	v.mu.Unlock()

	for _, fn := range callbacks {
		fn(value)
	}
}

// Update 基于当前值计算新值并写入，读改写在同一把锁内完成。
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	next := fn(v.value)
	v.value = next
	callbacks := make([]func(T), 0, len(v.subs))
	for _, cb := range v.subs {
		callbacks = append(callbacks, cb)
	}
	v.mu.Unlock()

	for _, cb := range callbacks {
		cb(next)
	}
	return next
}

// Subscribe 注册回调，立即以当前值回调一次。返回的函数用于取消订阅。
func (v *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	current := v.value
	v.mu.Unlock()

	fn(current)
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}
