package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gdg-portal/internal/pkg/redis"
)

const redisKeyPrefix = "portal:flow:"

// RedisStore 多实例部署时共享流程状态，过期交给 Redis TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Flow, error) {
	raw, err := s.client.GetBytes(ctx, redisKey(id))
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取验证流程失败: %w", err)
	}
	return decodeFlow(raw)
}

func (s *RedisStore) Save(ctx context.Context, f *Flow) error {
	raw, err := encodeFlow(f)
	if err != nil {
		return err
	}
	if err := s.client.SetWithTTL(ctx, redisKey(f.ID), raw, s.ttl); err != nil {
		return fmt.Errorf("保存验证流程失败: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.DeleteKey(ctx, redisKey(id))
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func encodeFlow(f *Flow) ([]byte, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("序列化验证流程失败: %w", err)
	}
	return raw, nil
}

func decodeFlow(raw []byte) (*Flow, error) {
	var f Flow
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("反序列化验证流程失败: %w", err)
	}
	if f.ID == "" {
		return nil, ErrFlowNotFound
	}
	return &f, nil
}
