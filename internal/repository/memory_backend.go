package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"quickplan-go/internal/model"

	"gorm.io/gorm"
)

// 以下是开发后端在 server.storage=memory 时使用的内存实现，
// 与 GORM 实现一样在查找不到时返回 gorm.ErrRecordNotFound。

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

// NewMemoryUserRepository 创建内存中的 UserRepository。
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]model.User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	for _, u := range r.users {
		if sameKey(u.Phone, user.Phone) || sameKey(u.Email, user.Email) || sameKey(u.OpenID, user.OpenID) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, userID string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == userID })
}

func (r *memoryUserRepository) FindByPhone(_ context.Context, phone string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email != nil && *u.Email == email })
}

func (r *memoryUserRepository) FindByOpenID(_ context.Context, openID string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.OpenID != nil && *u.OpenID == openID })
}

func (r *memoryUserRepository) find(match func(model.User) bool) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func sameKey(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

type memoryScheduleStore struct {
	mu      sync.RWMutex
	records []model.ScheduleRecord
}

// NewMemoryScheduleStore 创建内存中的 ScheduleStore。
func NewMemoryScheduleStore() ScheduleStore {
	return &memoryScheduleStore{}
}

func (s *memoryScheduleStore) Create(_ context.Context, record *model.ScheduleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == record.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	now := time.Now()
	record.CreatedAt, record.UpdatedAt = now, now
	s.records = append(s.records, *record)
	return nil
}

func (s *memoryScheduleStore) Update(_ context.Context, record *model.ScheduleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == record.ID {
			cur := &s.records[i]
			cur.Title = record.Title
			cur.Location = record.Location
			cur.Date = record.Date
			cur.Time = record.Time
			cur.Description = record.Description
			cur.UpdatedAt = time.Now()
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memoryScheduleStore) Delete(_ context.Context, scheduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == scheduleID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memoryScheduleStore) FindByID(_ context.Context, scheduleID string) (*model.ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == scheduleID {
			found := r
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memoryScheduleStore) ListByUser(_ context.Context, userID string) ([]model.ScheduleRecord, error) {
	return s.filter(func(r model.ScheduleRecord) bool { return r.UserID == userID }), nil
}

func (s *memoryScheduleStore) ListByDateRange(_ context.Context, userID, startDate, endDate string) ([]model.ScheduleRecord, error) {
	return s.filter(func(r model.ScheduleRecord) bool {
		return r.UserID == userID && r.Date >= startDate && r.Date <= endDate
	}), nil
}

func (s *memoryScheduleStore) filter(match func(model.ScheduleRecord) bool) []model.ScheduleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ScheduleRecord, 0)
	for _, r := range s.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

type memoryConversationRepository struct {
	mu        sync.RWMutex
	convs     map[string]*memoryConversation
	clock     int // 每次写入递增，用于按最近更新排序
	nextMsgID uint
}

type memoryConversation struct {
	record   model.ConversationRecord
	touched  int
	messages []model.MessageRecord
}

// NewMemoryConversationRepository 创建内存中的 ConversationRepository。
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{convs: make(map[string]*memoryConversation)}
}

func (r *memoryConversationRepository) Create(_ context.Context, conv *model.ConversationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[conv.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	now := time.Now()
	conv.CreatedAt, conv.UpdatedAt = now, now
	r.clock++
	r.convs[conv.ID] = &memoryConversation{record: *conv, touched: r.clock}
	return nil
}

func (r *memoryConversationRepository) FindByID(_ context.Context, conversationID string) (*model.ConversationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	rec := c.record
	return &rec, nil
}

func (r *memoryConversationRepository) ListByUser(_ context.Context, userID string) ([]model.ConversationSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convs := make([]*memoryConversation, 0)
	for _, c := range r.convs {
		if c.record.UserID == userID {
			convs = append(convs, c)
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].touched > convs[j].touched })

	summaries := make([]model.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summaries = append(summaries, summarize(c.record, len(c.messages)))
	}
	return summaries, nil
}

func (r *memoryConversationRepository) Delete(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[conversationID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.convs, conversationID)
	return nil
}

func (r *memoryConversationRepository) AppendMessages(_ context.Context, conversationID string, messages ...*model.MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	for _, m := range messages {
		r.nextMsgID++
		m.ID = r.nextMsgID
		m.ConversationID = conversationID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		c.messages = append(c.messages, *m)
	}
	r.clock++
	c.touched = r.clock
	c.record.UpdatedAt = now
	return nil
}

func (r *memoryConversationRepository) Messages(_ context.Context, conversationID string) ([]model.MessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[conversationID]
	if !ok {
		return []model.MessageRecord{}, nil
	}
	out := make([]model.MessageRecord, len(c.messages))
	copy(out, c.messages)
	return out, nil
}
