package messaging

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
)

// Bindings 三个通知队列与路由键的绑定
func Bindings(infoQueue, emailQueue, performanceQueue string) []mq.Binding {
	return []mq.Binding{
		{Queue: infoQueue, RoutingKeys: []string{PrefixInfo + ".#"}},
		{Queue: emailQueue, RoutingKeys: []string{PrefixEmail + ".#"}},
		{Queue: performanceQueue, RoutingKeys: []string{PrefixPerformance + ".#"}},
	}
}

// NewLogHandler 通知队列的消费处理器：解码后写日志（下游邮件服务的占位实现）
// 无法解码的消息直接确认丢弃，避免毒消息反复重新入队
func NewLogHandler(queue string, log *zap.Logger) mq.Handler {
	return func(ctx context.Context, d mq.Delivery) error {
		fields := []zap.Field{
			zap.String("queue", queue),
			zap.String("routing_key", d.RoutingKey),
			zap.String("message_id", d.MessageID),
		}

		var (
			decoded interface{}
			err     error
		)
		switch {
		case strings.HasPrefix(d.RoutingKey, PrefixEmail+"."):
			var m EmailMessage
			err = mq.Decode(d.Body, &m)
			decoded = m
		case strings.HasPrefix(d.RoutingKey, PrefixPerformance+"."):
			var m PerformanceInfo
			err = mq.Decode(d.Body, &m)
			decoded = m
		default:
			var m InfoMessage
			err = mq.Decode(d.Body, &m)
			decoded = m
		}

		metrics.ObserveConsume(queue, err)
		if err != nil {
			log.Warn("discard undecodable message", append(fields, zap.Error(err))...)
			return nil
		}

		log.Info("notification received", append(fields, zap.Any("message", decoded))...)
		return nil
	}
}
