package xkafkapool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/pkg/observability/xlog"
)

const componentName = "xkafkapool"

// Pool 把多个单主题消费者组合为一个逻辑消费者。
//
// 不变量：
//   - len(handles) == len(subs)，下标一一对应
//   - 0 <= cursor < len(handles)
//   - 已创建的槽位只会通过 ResetCurrent 或 Close 置空
type Pool struct {
	cfg     Config
	opts    *poolOptions
	logger  xlog.Logger
	subs    []Subscription
	handles []Handle
	cursor  int

	batch       []*kafka.Message
	lastBatch   time.Time
	lastPollEOF bool
	closed      bool
}

// New 校验配置并创建 Pool，不建立任何连接。
//
// cfg 为 nil 时返回 ErrNilConfig；订阅为空或其他校验失败时返回包装
// ErrInvalidConfig 的错误。cfg 会被复制，之后对它的修改不影响 Pool。
func New(cfg *Config, opts ...Option) (*Pool, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	if options.factory == nil {
		options.factory = ConsumerFactory(options.observer)
	}

	c := cfg.withDefaults()
	return &Pool{
		cfg:       c,
		opts:      options,
		logger:    options.logger.With(xlog.Component(componentName)),
		subs:      c.Subscriptions,
		handles:   make([]Handle, len(c.Subscriptions)),
		lastBatch: options.clock.Now(),
	}, nil
}

// Len 返回订阅（槽位）数量。
func (p *Pool) Len() int {
	return len(p.handles)
}

// Cursor 返回当前槽位下标。
func (p *Pool) Cursor() int {
	return p.cursor
}

// Subscriptions 返回订阅列表的副本，顺序即轮询顺序。
func (p *Pool) Subscriptions() []Subscription {
	out := make([]Subscription, len(p.subs))
	for i, s := range p.subs {
		out[i] = s.clone()
	}
	return out
}

// Config 返回填充默认值后的池配置副本。
func (p *Pool) Config() Config {
	return p.cfg.withDefaults()
}

// CurrentTopic 返回当前槽位的主题。
func (p *Pool) CurrentTopic() string {
	return p.subs[p.cursor].Topic
}

// LastPollReadPartitionEOF 报告最近一次 Poll/BatchPoll 是否吸收了分区 EOF。
// 只反映最近一次调用，不累积。
func (p *Pool) LastPollReadPartitionEOF() bool {
	return p.lastPollEOF
}

// Current 返回当前槽位的 Handle，槽位为空时先创建连接并订阅主题。
//
// 订阅失败时关闭半开的连接，返回 errors.Join(订阅错误, 关闭错误)，槽位保持为空。
func (p *Pool) Current(ctx context.Context) (Handle, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if h := p.handles[p.cursor]; h != nil {
		return h, nil
	}

	sub := p.subs[p.cursor]
	h, err := p.opts.factory(p.cfg.ClientConfig(sub))
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("xkafkapool: factory returned nil handle for topic %q", sub.Topic)
	}
	if err := h.Subscribe(sub.Topic); err != nil {
		return nil, errors.Join(err, h.Close())
	}

	p.handles[p.cursor] = h
	p.logger.Debug(ctx, "consumer realized", xlog.Topic(sub.Topic))
	return h, nil
}

// SelectNext 把游标移动到下一个槽位（循环），不创建连接。
func (p *Pool) SelectNext() {
	p.cursor = (p.cursor + 1) % len(p.handles)
}

// ResetCurrent 关闭并清空当前槽位，游标不变；槽位为空时什么也不做。
// 关闭失败时槽位仍被清空，错误被返回。
func (p *Pool) ResetCurrent(ctx context.Context) error {
	if p.closed {
		return ErrClosed
	}
	h := p.handles[p.cursor]
	if h == nil {
		return nil
	}
	p.handles[p.cursor] = nil

	topic := p.subs[p.cursor].Topic
	if err := h.Close(); err != nil {
		p.logger.Warn(ctx, "close evicted consumer failed", xlog.Topic(topic), xlog.Err(err))
		return err
	}
	p.logger.Debug(ctx, "consumer reset", xlog.Topic(topic))
	return nil
}

// evict 在 max.poll.interval.ms 超时后销毁当前连接并轮转到下一个槽位。
// 关闭失败只记录日志：连接已被 broker 踢出消费组，无法继续使用。
func (p *Pool) evict(ctx context.Context, cause error) {
	p.logger.Debug(ctx, "consumer evicted from group, recreating",
		xlog.Topic(p.CurrentTopic()), xlog.Err(cause))
	_ = p.ResetCurrent(ctx)
	p.SelectNext()
}

// Close 按顺序关闭所有已创建的连接并清空槽位，返回合并后的关闭错误。
// 重复调用返回 nil；关闭后其他操作返回 ErrClosed。
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for i, h := range p.handles {
		if h == nil {
			continue
		}
		p.handles[i] = nil
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("xkafkapool: close consumer for topic %q: %w", p.subs[i].Topic, err))
		}
	}
	p.batch = nil
	return errors.Join(errs...)
}
