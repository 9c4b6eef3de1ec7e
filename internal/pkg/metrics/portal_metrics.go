package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PortalMetrics 门户业务指标：门禁决策、验证流程、引导提交
type PortalMetrics struct {
	// 门禁决策（按路由类别与结果）
	GateDecisions *prometheus.CounterVec

	// 验证流程事件（按流程类型与事件：code_sent / resend / verified / incorrect_code / back ...）
	VerificationEvents *prometheus.CounterVec

	// 引导提交结果
	OnboardingOutcomes *prometheus.CounterVec

	// 后端会员注册结果（best-effort）
	MemberRegistrations *prometheus.CounterVec

	// 对外返回的错误（按错误类别与状态码）
	ErrorsTotal *prometheus.CounterVec

	// 流程存储操作耗时（按后端与操作）
	StoreOperationDuration *prometheus.HistogramVec
}

var (
	// DefaultPortalMetrics 默认实例
	DefaultPortalMetrics *PortalMetrics

	storeBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}
)

func init() {
	DefaultPortalMetrics = NewPortalMetrics("portal")
}

// NewPortalMetrics 使用全局 Registerer 创建
func NewPortalMetrics(namespace string) *PortalMetrics {
	return NewPortalMetricsWithRegistry(namespace, GetRegisterer())
}

// NewPortalMetricsWithRegistry 使用自定义 Registerer 创建
func NewPortalMetricsWithRegistry(namespace string, registerer prometheus.Registerer) *PortalMetrics {
	factory := promauto.With(registerer)

	return &PortalMetrics{
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_decisions_total",
				Help:      "Access gate decisions by route class and outcome",
			},
			[]string{"route_class", "decision"},
		),
		VerificationEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_events_total",
				Help:      "Verification flow events by flow kind and event",
			},
			[]string{"kind", "event"},
		),
		OnboardingOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "onboarding_submissions_total",
				Help:      "Onboarding submissions by outcome",
			},
			[]string{"outcome"},
		),
		MemberRegistrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "member_registrations_total",
				Help:      "Backend member registrations by outcome",
			},
			[]string{"outcome"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Errors returned to clients by kind and status code",
			},
			[]string{"kind", "status_code"},
		),
		StoreOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "flow_store_operation_duration_seconds",
				Help:      "Verification flow store latency by backend, operation and outcome",
				Buckets:   storeBuckets,
			},
			[]string{"backend", "operation", "outcome"},
		),
	}
}

// RecordGateDecision 记录一次门禁决策
func (m *PortalMetrics) RecordGateDecision(routeClass, decision string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(routeClass, decision).Inc()
}

// RecordVerificationEvent 记录验证流程事件
func (m *PortalMetrics) RecordVerificationEvent(kind, event string) {
	if m == nil {
		return
	}
	m.VerificationEvents.WithLabelValues(kind, event).Inc()
}

// RecordOnboarding 记录引导提交结果
func (m *PortalMetrics) RecordOnboarding(outcome string) {
	if m == nil {
		return
	}
	m.OnboardingOutcomes.WithLabelValues(outcome).Inc()
}

// RecordMemberRegistration 记录后端会员注册结果
func (m *PortalMetrics) RecordMemberRegistration(outcome string) {
	if m == nil {
		return
	}
	m.MemberRegistrations.WithLabelValues(outcome).Inc()
}

// RecordError 记录返回给客户端的错误
func (m *PortalMetrics) RecordError(kind, statusCode string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind, statusCode).Inc()
}

// ObserveStoreOperation 记录流程存储耗时
func (m *PortalMetrics) ObserveStoreOperation(backend, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.StoreOperationDuration.WithLabelValues(backend, operation, outcome).Observe(duration.Seconds())
}
