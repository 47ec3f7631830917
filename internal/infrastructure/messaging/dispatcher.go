package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
)

// Publisher 消息发布（mq.Publisher、LogPublisher）
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// Options 分发器配置
type Options struct {
	Workers         int
	BufferSize      int
	BreakerFailures uint32        // 连续失败多少次后熔断
	BreakerTimeout  time.Duration // 熔断持续时间
	PublishTimeout  time.Duration // 单条消息发布超时
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 30 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 5 * time.Second
	}
}

// Dispatcher 异步事件分发器
// Dispatch只把事件放进缓冲区，由工作协程发布；缓冲区满或已关闭时丢弃并记录。
// 发布失败只记录日志，不会回传给业务调用方。
type Dispatcher struct {
	publisher Publisher
	breaker   *circuitbreaker.CircuitBreaker
	log       *zap.Logger
	opts      Options

	mu     sync.RWMutex
	closed bool
	queue  chan event.Event
	wg     sync.WaitGroup
}

// NewDispatcher 创建分发器并启动工作协程
func NewDispatcher(publisher Publisher, opts Options, log *zap.Logger) *Dispatcher {
	opts.normalize()

	d := &Dispatcher{
		publisher: publisher,
		log:       log,
		opts:      opts,
		queue:     make(chan event.Event, opts.BufferSize),
	}
	d.breaker = circuitbreaker.New("notification-publisher", circuitbreaker.Config{
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: circuitbreaker.ConsecutiveFailures(opts.BreakerFailures),
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetBreakerState(name, int(to))
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch 投递事件（不阻塞）
func (d *Dispatcher) Dispatch(_ context.Context, ev event.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ev, "dispatcher closed")
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.drop(ev, "buffer full")
	}
}

// Close 停止接收新事件，等待缓冲区中的事件发布完或ctx到期
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

// deliver 发布一个事件拆出的全部消息，每条消息独立经过熔断器
func (d *Dispatcher) deliver(ev event.Event) {
	for _, msg := range Build(ev) {
		err := d.breaker.Execute(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), d.opts.PublishTimeout)
			defer cancel()
			return d.publisher.Publish(ctx, msg.RoutingKey, msg.Body)
		})

		switch err {
		case nil:
			metrics.IncBreakerRequest(d.breaker.Name(), metrics.ResultSuccess)
		case circuitbreaker.ErrOpenState:
			metrics.IncBreakerRequest(d.breaker.Name(), metrics.ResultRejected)
		default:
			metrics.IncBreakerRequest(d.breaker.Name(), metrics.ResultFailure)
		}
		metrics.ObservePublish(msg.RoutingKey, err)

		if err != nil {
			d.log.Error("publish notification failed",
				zap.String("routing_key", msg.RoutingKey),
				zap.String("operation", ev.Operation),
				zap.Float64("failure_rate", d.breaker.Counts().FailureRate()),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) drop(ev event.Event, reason string) {
	metrics.IncDropped()
	d.log.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("kind", string(ev.Kind)),
		zap.String("operation", ev.Operation),
	)
}

// LogPublisher 未启用RabbitMQ时使用，只把消息写到日志
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher 创建日志发布者
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish 记录消息
func (p *LogPublisher) Publish(_ context.Context, routingKey string, message interface{}) error {
	p.log.Info("notification", zap.String("routing_key", routingKey), zap.Any("message", message))
	return nil
}
