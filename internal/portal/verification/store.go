package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"gdg-portal/internal/pkg/metrics"
)

// ErrFlowNotFound 流程不存在或已过期
var ErrFlowNotFound = errors.New("verification flow not found")

// Store 流程持久化。Get 对缺失或过期记录返回 ErrFlowNotFound。
type Store interface {
	Get(ctx context.Context, id string) (*Flow, error)
	Save(ctx context.Context, f *Flow) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	data      Flow
	expiresAt time.Time
}

// MemoryStore 进程内存储，单实例部署或未配置 Redis 时使用。
// 过期记录由 Get 惰性剔除，并由定时任务调用 Sweep 批量清理。
type MemoryStore struct {
	ttl     time.Duration
	clock   func() time.Time
	metrics *metrics.PortalMetrics
	mu      sync.Mutex
	flows   map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration, m *metrics.PortalMetrics) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if m == nil {
		m = metrics.DefaultPortalMetrics
	}
	return &MemoryStore{
		ttl:     ttl,
		clock:   time.Now,
		metrics: m,
		flows:   make(map[string]memoryEntry),
	}
}

// WithClock 替换时钟，测试用
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Flow, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStoreOperation("memory", "get", nil, time.Since(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	if !s.clock().Before(e.expiresAt) {
		delete(s.flows, id)
		return nil, ErrFlowNotFound
	}

	f := e.data
	return &f, nil
}

// Save 保存副本并刷新过期时间
func (s *MemoryStore) Save(_ context.Context, f *Flow) error {
	start := time.Now()
	defer func() { s.metrics.ObserveStoreOperation("memory", "set", nil, time.Since(start)) }()

	s.mu.Lock()
	s.flows[f.ID] = memoryEntry{data: *f, expiresAt: s.clock().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	start := time.Now()
	defer func() { s.metrics.ObserveStoreOperation("memory", "del", nil, time.Since(start)) }()

	s.mu.Lock()
	delete(s.flows, id)
	s.mu.Unlock()
	return nil
}

// Sweep 删除全部过期记录，返回删除数量
func (s *MemoryStore) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.flows {
		if !now.Before(e.expiresAt) {
			delete(s.flows, id)
			removed++
		}
	}
	return removed
}

// Len 当前记录数（含尚未清理的过期记录）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}
