package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/pkg/config/xconf"
	"github.com/omeyang/xkpool/pkg/lifecycle/xrun"
	"github.com/omeyang/xkpool/pkg/mq/xkafka"
	"github.com/omeyang/xkpool/pkg/mq/xkafkapool"
	"github.com/omeyang/xkpool/pkg/observability/xlog"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
	"github.com/omeyang/xkpool/pkg/resilience/xbreaker"
	"github.com/omeyang/xkpool/pkg/resilience/xretry"
)

const maxRestartDelay = 30 * time.Second

// consumeOptions 是 consume 命令的参数。
type consumeOptions struct {
	batch          bool
	pollTimeout    time.Duration
	commitInterval time.Duration
	maxMessages    int
	maxRestarts    int
	restartDelay   time.Duration
	restartBackoff string
	connectFails   int
	watch          bool
	logLevel       string
	logFormat      string
	logFile        string
}

// cmdConsume 运行消费循环，直到收到信号、达到 --max-messages 或重启次数耗尽。
func cmdConsume(ctx context.Context, env *environment, path, section string, opts consumeOptions) error {
	src, cfg, err := loadConfig(path, section)
	if err != nil {
		return err
	}
	ensureClientID(cfg)

	logger, cleanup, err := buildLogger(env, src, opts)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	observer, err := xmetrics.NewOTelObserver()
	if err != nil {
		return err
	}

	factory := env.factory
	if factory == nil {
		factory = xkafkapool.ConsumerFactory(observer)
	}
	if opts.connectFails > 0 {
		factory = guardFactory(newConnectBreaker(logger, opts.connectFails), factory)
	}

	c := &consumer{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		observer: observer,
		out:      env.stdout,
		poolOptions: []xkafkapool.Option{
			xkafkapool.WithFactory(factory),
			xkafkapool.WithLogger(logger),
			xkafkapool.WithObserver(observer),
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	services := []func(context.Context) error{
		func(ctx context.Context) error {
			err := c.supervise(ctx)
			if err == nil {
				// 正常结束时停止其余服务（信号监听、配置监视）。
				cancel()
			}
			return err
		},
	}
	if opts.watch {
		w, err := xconf.NewWatcher(src, levelReloader(logger, opts.logLevel != ""))
		if err != nil {
			return err
		}
		services = append(services, w.Run)
	}

	runOpts := []xrun.Option{xrun.WithLogger(logger), xrun.WithName("xkpool")}
	if !env.signals {
		runOpts = append(runOpts, xrun.WithoutSignalHandler())
	}

	logger.Info(ctx, "consumer pool starting",
		slog.Int("topics", len(cfg.Subscriptions)),
		slog.String("group", cfg.GroupID),
		slog.String("client_id", cfg.ClientID),
		slog.Bool("batch", opts.batch),
	)
	err = xrun.RunWithOptions(ctx, runOpts, services...)
	if errors.Is(err, xrun.ErrSignal) {
		logger.Info(ctx, "consumer pool stopped", slog.String("reason", err.Error()))
		return nil
	}
	return err
}

// levelReloader 在配置文件变化后按 log.level 调整日志级别。
// pinned 为 true 表示级别由命令行指定，文件中的值不生效。
func levelReloader(logger xlog.LoggerWithLevel, pinned bool) xconf.WatchCallback {
	return func(cfg xconf.Config, err error) {
		ctx := context.Background()
		if err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		if pinned {
			return
		}
		raw := cfg.Client().String(logLevelKey)
		if raw == "" {
			return
		}
		level, err := xlog.ParseLevel(raw)
		if err != nil {
			logger.Warn(ctx, "ignore invalid log level", xlog.Err(err))
			return
		}
		if level == logger.GetLevel() {
			return
		}
		logger.SetLevel(level)
		logger.Info(ctx, "log level reloaded", slog.String("level", level.String()))
	}
}

// newConnectBreaker 创建保护消费者创建的熔断器。
// 熔断器跨池重建存活；打开后的拒绝不可重试，supervise 随之结束。
func newConnectBreaker(logger xlog.Logger, threshold int) *xbreaker.Breaker {
	return xbreaker.NewBreaker("xkpool-connect",
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(uint32(min(threshold, math.MaxUint16)))),
		xbreaker.WithTimeout(maxRestartDelay),
		xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
			logger.Warn(context.Background(), "breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}),
	)
}

// guardFactory 让每次创建消费者都经过熔断器。
func guardFactory(b *xbreaker.Breaker, next xkafkapool.Factory) xkafkapool.Factory {
	return func(cfg *kafka.ConfigMap) (xkafkapool.Handle, error) {
		return xbreaker.Execute(context.Background(), b, func() (xkafkapool.Handle, error) {
			return next(cfg)
		})
	}
}

// =============================================================================
// 消费循环
// =============================================================================

// consumer 驱动单个池：轮询、输出、定期提交。
// 池只在 supervise 所在的 goroutine 中使用。
type consumer struct {
	cfg         *xkafkapool.Config
	opts        consumeOptions
	logger      xlog.Logger
	observer    xmetrics.Observer
	out         io.Writer
	poolOptions []xkafkapool.Option

	consumed int
}

// supervise 运行消费循环，失败时按指数退避重建整个池。
func (c *consumer) supervise(ctx context.Context) error {
	policy, backoff := restartPolicies(c.opts)
	retryer := xretry.NewRetryer(
		xretry.WithRetryPolicy(policy),
		xretry.WithBackoffPolicy(backoff),
		xretry.WithOnRetry(func(attempt int, err error) {
			c.logger.Warn(ctx, "consume loop failed, restarting",
				slog.Int("attempt", attempt), xlog.Err(err))
		}),
	)
	return retryer.Do(ctx, c.runOnce)
}

// restartPolicies 由 --max-restarts、--restart-delay、--restart-backoff 得到重启策略。
// --max-restarts 为 0 时只运行一次。
func restartPolicies(opts consumeOptions) (xretry.RetryPolicy, xretry.BackoffPolicy) {
	policy := xretry.ForRetries(opts.maxRestarts)
	switch opts.restartBackoff {
	case backoffNone:
		return policy, xretry.NewNoBackoff()
	case backoffFixed:
		return policy, xretry.NewFixedBackoff(min(opts.restartDelay, maxRestartDelay))
	default:
		delay := opts.restartDelay
		if delay <= 0 {
			delay = time.Second
		}
		return policy, xretry.NewExponentialBackoff(
			xretry.WithInitialDelay(delay),
			xretry.WithMaxDelay(maxRestartDelay),
		)
	}
}

// runOnce 创建池并消费，直到 ctx 取消或达到消息上限。
// 配置错误包装为 PermanentError，不触发重启。
func (c *consumer) runOnce(ctx context.Context) (err error) {
	pool, err := xkafkapool.New(c.cfg, c.poolOptions...)
	if err != nil {
		return xretry.NewPermanentError(err)
	}
	defer func() {
		c.report(context.WithoutCancel(ctx), pool)
		err = errors.Join(err, pool.Close())
	}()

	lastCommit := time.Now()
	for ctx.Err() == nil && !c.done() {
		msgs, err := c.poll(ctx, pool)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if err := c.process(ctx, m); err != nil {
				return xretry.NewPermanentError(err)
			}
		}

		if c.opts.commitInterval <= 0 || time.Since(lastCommit) >= c.opts.commitInterval {
			if err := pool.Commit(ctx); err != nil {
				return err
			}
			lastCommit = time.Now()
			if c.opts.commitInterval > 0 {
				c.report(ctx, pool)
			}
		}
	}
	return pool.Commit(context.WithoutCancel(ctx))
}

func (c *consumer) poll(ctx context.Context, pool *xkafkapool.Pool) ([]*kafka.Message, error) {
	if c.opts.batch {
		return pool.BatchPoll(ctx, c.opts.pollTimeout)
	}
	msg, err := pool.Poll(ctx, c.opts.pollTimeout)
	if err != nil || msg == nil {
		return nil, err
	}
	return []*kafka.Message{msg}, nil
}

func (c *consumer) done() bool {
	return c.opts.maxMessages > 0 && c.consumed >= c.opts.maxMessages
}

// process 在生产端的追踪上下文下输出一条消息。
func (c *consumer) process(ctx context.Context, m *kafka.Message) (err error) {
	topic := ""
	if m.TopicPartition.Topic != nil {
		topic = *m.TopicPartition.Topic
	}

	ctx, span := xmetrics.Start(xkafka.ExtractContext(ctx, m), c.observer, xmetrics.SpanOptions{
		Component: "xkpool",
		Operation: "process",
		Kind:      xmetrics.KindConsumer,
		Attrs:     xmetrics.Messaging("kafka", topic),
	})
	defer func() { span.End(xmetrics.Result{Err: err}) }()

	if err := c.write(topic, m); err != nil {
		c.logger.Error(ctx, "write message failed", xlog.Topic(topic), xlog.Err(err))
		return err
	}
	return nil
}

// write 以 "topic partition offset key value" 的制表符分隔格式输出一条消息。
func (c *consumer) write(topic string, m *kafka.Message) error {
	_, err := fmt.Fprintf(c.out, "%s\t%d\t%d\t%s\t%s\n",
		topic, m.TopicPartition.Partition, int64(m.TopicPartition.Offset), m.Key, m.Value)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	c.consumed++
	return nil
}

// report 输出健康状态与各主题统计。
func (c *consumer) report(ctx context.Context, pool *xkafkapool.Pool) {
	if err := pool.Health(ctx); err != nil {
		c.logger.Warn(ctx, "consumer pool unhealthy", xlog.Err(err))
	}
	for _, s := range pool.Stats() {
		c.logger.Info(ctx, "topic stats",
			xlog.Topic(s.Topic),
			slog.Bool("realized", s.Realized),
			slog.Int64("messages", s.Consumer.MessagesConsumed),
			slog.Int64("bytes", s.Consumer.BytesConsumed),
			slog.Int64("errors", s.Consumer.Errors),
		)
	}
	c.logger.Info(ctx, "consumer pool progress", xlog.Count(c.consumed))
}
