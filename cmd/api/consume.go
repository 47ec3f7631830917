package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/pkg/mq"
)

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "消费通知队列（info / email / performance）并写日志",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			mqCfg := cfg.RabbitMQ
			if !mqCfg.Enabled {
				return errors.New("rabbitmq.enabled为false，没有可消费的队列")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// 每个队列一个消费者，任何一个退出都会取消其余的
			g, ctx := errgroup.WithContext(ctx)
			for _, b := range messaging.Bindings(mqCfg.InfoQueue, mqCfg.EmailQueue, mqCfg.PerformanceQueue) {
				consumer, err := mq.NewConsumer(mqCfg.URL, mqCfg.Exchange, "topic", b, log)
				if err != nil {
					return err
				}
				defer consumer.Close()

				queue := b.Queue
				g.Go(func() error {
					log.Info("consumer started", zap.String("queue", queue))
					return consumer.Consume(ctx, messaging.NewLogHandler(queue, log))
				})
			}
			return g.Wait()
		},
	}
}
