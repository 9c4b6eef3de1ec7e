package sessioncache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"maps"
	"sync"
	"time"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
)

// Session 缓存的会话投影，只保留门禁与页面需要的字段。
type Session struct {
	SessionToken       string
	UserID             string
	Email              string
	OnboardingComplete bool
	Claims             map[string]any
}

type entry struct {
	value     Session
	expiresAt time.Time
}

// Cache 线程安全的会话缓存，避免每次导航都请求 Kratos whoami。
// TTL 很短；引导提交后必须调用 Delete 以便重新读取新的声明。
type Cache struct {
	ttl     time.Duration
	metrics *metrics.SessionMetrics
	logger  log.Logger
	clock   func() time.Time
	mu      sync.RWMutex
	store   map[string]*entry
}

// New 返回默认 Cache 实例。
func New(ttl time.Duration, m *metrics.SessionMetrics, logger log.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if m == nil {
		m = metrics.DefaultSessionMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Cache{
		ttl:     ttl,
		metrics: m,
		logger:  logger.With("component", "session_cache"),
		clock:   time.Now,
		store:   make(map[string]*entry),
	}
}

// WithClock 替换时钟，测试用。
func (c *Cache) WithClock(clock func() time.Time) *Cache {
	c.clock = clock
	return c
}

// Get 返回缓存的 Session。不刷新 TTL，声明变化最多延迟一个 TTL 可见。
func (c *Cache) Get(ctx context.Context, token string) (Session, bool) {
	if token == "" {
		c.metrics.IncCacheMiss("")
		return Session{}, false
	}

	c.mu.RLock()
	value, ok := c.store[token]
	c.mu.RUnlock()

	if !ok {
		c.metrics.IncCacheMiss("")
		c.logger.DebugContext(ctx, "session cache miss",
			log.String("token_hash", hashToken(token)))
		return Session{}, false
	}

	if c.clock().After(value.expiresAt) {
		c.metrics.IncCacheEvicted("", "expired")
		c.mu.Lock()
		delete(c.store, token)
		c.mu.Unlock()
		return Session{}, false
	}

	c.metrics.IncCacheHit("")
	return cloneSession(value.value), true
}

// Set 写入或刷新 Session。
func (c *Cache) Set(ctx context.Context, session Session) {
	if session.SessionToken == "" {
		return
	}
	c.mu.Lock()
	c.store[session.SessionToken] = &entry{
		value:     cloneSession(session),
		expiresAt: c.clock().Add(c.ttl),
	}
	c.mu.Unlock()
	c.logger.DebugContext(ctx, "session cache updated",
		log.String("token_hash", hashToken(session.SessionToken)))
}

// Delete 主动剔除缓存（登出 / 元数据更新 / 会话失效）。
func (c *Cache) Delete(ctx context.Context, token, reason string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	if _, ok := c.store[token]; ok {
		delete(c.store, token)
		c.metrics.IncCacheEvicted("", reason)
		c.logger.InfoContext(ctx, "session cache evicted",
			log.String("reason", reason),
			log.String("token_hash", hashToken(token)))
	}
	c.mu.Unlock()
}

// Purge 清理所有已过期条目，返回清理数量。
func (c *Cache) Purge() int {
	now := c.clock()
	removed := 0

	c.mu.Lock()
	for token, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, token)
			removed++
		}
	}
	c.mu.Unlock()

	for range removed {
		c.metrics.IncCacheEvicted("", "purged")
	}
	return removed
}

// Len 当前缓存条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func cloneSession(s Session) Session {
	s.Claims = maps.Clone(s.Claims)
	return s
}

// HashToken 令牌摘要，只用于日志关联。
func HashToken(token string) string {
	return hashToken(token)
}

func hashToken(token string) string {
	if token == "" {
		return ""
	}
	h := sha1.Sum([]byte(token))
	return hex.EncodeToString(h[:])[:12]
}
