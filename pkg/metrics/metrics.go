// Package metrics 提供基于Prometheus的指标收集
//
// 指标分三组：
//   - HTTP：请求总数、耗时、处理中的请求数
//   - 借阅业务：每个用例的执行次数（按结果区分）与耗时
//   - 消息：发布、消费、分发丢弃，以及熔断器状态
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾（_seconds）。
// 标签只使用有限取值（method/path模板/operation/result），不要用user_id等高基数值。
//
// 使用示例：
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 结果标签取值
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)

var (
	initOnce sync.Once

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板，如/api/v1/books/:id）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// LendingOperationsTotal 用例执行总数
	// 标签：operation（book.borrow等）、result（success/failure）
	LendingOperationsTotal *prometheus.CounterVec

	// LendingOperationDuration 用例耗时（含事务提交）
	LendingOperationDuration *prometheus.HistogramVec

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// MessagesPublishedTotal 消息发布总数
	// 标签：routing_key、result
	MessagesPublishedTotal *prometheus.CounterVec

	// MessagesConsumedTotal 消息消费总数
	// 标签：queue、result
	MessagesConsumedTotal *prometheus.CounterVec

	// EventsDroppedTotal 分发缓冲区满时被丢弃的事件数
	EventsDroppedTotal prometheus.Counter
)

// InitMetrics 初始化所有Prometheus指标（可重复调用，只注册一次）
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP请求耗时（秒）",
			// 1ms、10ms、100ms、500ms、1s、5s、10s
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	LendingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_operations_total",
			Help: "借阅业务用例执行总数",
		},
		[]string{"operation", "result"},
	)

	LendingOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "library_operation_duration_seconds",
			Help: "借阅业务用例耗时（秒）",
			// 借阅在行锁上排队时会明显变慢，桶上限放宽到5s
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"routing_key", "result"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"queue", "result"},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_events_dropped_total",
			Help: "分发缓冲区已满被丢弃的事件数",
		},
	)
}

// ResultLabel error转换为结果标签
func ResultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// ObserveOperation 记录一次用例执行
func ObserveOperation(operation string, seconds float64, err error) {
	InitMetrics()
	LendingOperationsTotal.WithLabelValues(operation, ResultLabel(err)).Inc()
	LendingOperationDuration.WithLabelValues(operation).Observe(seconds)
}

// ObservePublish 记录一次消息发布
func ObservePublish(routingKey string, err error) {
	InitMetrics()
	MessagesPublishedTotal.WithLabelValues(routingKey, ResultLabel(err)).Inc()
}

// ObserveConsume 记录一次消息消费
func ObserveConsume(queue string, err error) {
	InitMetrics()
	MessagesConsumedTotal.WithLabelValues(queue, ResultLabel(err)).Inc()
}

// IncDropped 记录一次事件丢弃
func IncDropped() {
	InitMetrics()
	EventsDroppedTotal.Inc()
}

// SetBreakerState 记录熔断器状态
func SetBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncBreakerRequest 记录熔断器请求结果
func IncBreakerRequest(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}
