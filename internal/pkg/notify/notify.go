package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gdg-portal/internal/pkg/ctxkey"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Default subjects
const (
	SubjectOnboardingCompleted         = "portal.onboarding.completed"
	SubjectMemberRegistrationFailed    = "portal.member.registration_failed"
	SubjectMemberRegistrationSucceeded = "portal.member.registered"
)

// Event 发布到 NATS 的事件信封
type Event struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// NATSPublisher 基于 NATS 的发布器，conn 为 nil 时静默降级
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher 创建发布器
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Connect 连接 NATS；url 为空时返回无连接的发布器
func Connect(url string) (*NATSPublisher, error) {
	if url == "" {
		return NewNATSPublisher(nil), nil
	}
	conn, err := nats.Connect(url,
		nats.Name("gdg-portal"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats failed: %w", err)
	}
	return NewNATSPublisher(conn), nil
}

// Publish 发布事件
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if p == nil || p.conn == nil {
		return nil // 没有连接时静默降级
	}
	data, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Subject:    subject,
		TraceID:    ctxkey.GetString(ctx, ctxkey.TraceID),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal portal event failed: %w", err)
	}
	return p.conn.Publish(subject, data)
}

// Connected 是否已连接（readiness 使用）
func (p *NATSPublisher) Connected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Healthy 连接可用且能完成一次往返；未配置 NATS 时视为健康
func (p *NATSPublisher) Healthy(ctx context.Context) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if p.conn.IsClosed() || !p.conn.IsConnected() {
		return errors.New("nats connection is not established")
	}
	return p.conn.FlushWithContext(ctx)
}

// Close 刷新并关闭连接
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
