// Package shared 应用层公共设施
//
// Executor把一次用例调用包装成：
//  1. 开启事务，执行领域操作（领域服务返回结果和待发送事件）
//  2. 事务提交成功后才把事件交给Dispatcher；回滚则事件随之丢弃
//  3. 在事件上补全性能记录（操作名、调用者、开始时间、耗时）
//
// 分发是异步尽力而为的，分发失败不会影响已经提交的结果。
package shared

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

const tracerName = "library/application"

// TxManager 事务管理器（mysql.TxManager与memory.Store都实现了它）
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Executor 用例执行器
type Executor struct {
	tx         TxManager
	dispatcher event.Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewExecutor 创建执行器，dispatcher为nil时丢弃所有事件
func NewExecutor(tx TxManager, dispatcher event.Dispatcher, log *zap.Logger) *Executor {
	if dispatcher == nil {
		dispatcher = nopDispatcher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{tx: tx, dispatcher: dispatcher, log: log, now: time.Now}
}

// Run 在事务中执行写操作，提交后分发fn返回的事件
func (e *Executor) Run(ctx context.Context, operation string, actor user.Identity, fn func(ctx context.Context) (event.Event, error)) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, operation)
	started := e.now()

	var ev event.Event
	err := e.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ev, err = fn(ctx)
		return err
	})

	elapsed := e.now().Sub(started)
	metrics.ObserveOperation(operation, elapsed.Seconds(), err)
	tracing.End(span, err)

	if err != nil {
		e.log.Debug("operation rejected",
			zap.String("operation", operation),
			zap.String("actor", actor.Username),
			zap.Error(err),
		)
		return err
	}

	e.dispatch(ctx, stamp(ev, operation, actor, started, elapsed))
	return nil
}

// Query 执行只读操作，成功后只发送性能记录
func (e *Executor) Query(ctx context.Context, operation string, actor user.Identity, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, operation)
	started := e.now()

	err := fn(ctx)

	elapsed := e.now().Sub(started)
	metrics.ObserveOperation(operation, elapsed.Seconds(), err)
	tracing.End(span, err)
	if err != nil {
		return err
	}

	e.dispatch(ctx, stamp(event.Event{Kind: event.KindQueried}, operation, actor, started, elapsed))
	return nil
}

// dispatch 请求ctx可能在响应返回后被取消，分发使用脱离取消的ctx
func (e *Executor) dispatch(ctx context.Context, ev event.Event) {
	e.dispatcher.Dispatch(context.WithoutCancel(ctx), ev)
}

func stamp(ev event.Event, operation string, actor user.Identity, started time.Time, elapsed time.Duration) event.Event {
	if ev.Kind == "" {
		ev.Kind = event.KindQueried
	}
	ev.Operation = operation
	ev.ActorID = actor.UserID
	ev.ActorEmail = actor.Email
	ev.StartedAt = started
	ev.Duration = elapsed
	return ev
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, event.Event) {}
