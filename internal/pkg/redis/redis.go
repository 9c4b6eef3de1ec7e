package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gdg-portal/internal/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// Nil 键不存在
var Nil = redis.Nil

// Config Redis 配置
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client Redis 客户端封装，所有操作记录耗时指标
type Client struct {
	*redis.Client
	metrics *metrics.PortalMetrics
}

// NewClient 创建 Redis 客户端并测试连接
func NewClient(ctx context.Context, cfg Config, m *metrics.PortalMetrics) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	return Wrap(rdb, m), nil
}

// Wrap 包装已有的 go-redis 客户端
func Wrap(rdb *redis.Client, m *metrics.PortalMetrics) *Client {
	if m == nil {
		m = metrics.DefaultPortalMetrics
	}
	return &Client{Client: rdb, metrics: m}
}

// SetWithTTL 设置键值对，带过期时间
func (c *Client) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	start := time.Now()
	err := c.Set(ctx, key, value, ttl).Err()
	c.metrics.ObserveStoreOperation("redis", "set", err, time.Since(start))
	return err
}

// GetBytes 获取原始值，键不存在时返回 Nil
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	result, err := c.Get(ctx, key).Bytes()

	observed := err
	if errors.Is(err, redis.Nil) {
		observed = nil
	}
	c.metrics.ObserveStoreOperation("redis", "get", observed, time.Since(start))
	return result, err
}

// DeleteKey 删除键
func (c *Client) DeleteKey(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.Del(ctx, keys...).Err()
	c.metrics.ObserveStoreOperation("redis", "del", err, time.Since(start))
	return err
}

// Healthy 连接是否可用（readiness 检查使用）
func (c *Client) Healthy(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
