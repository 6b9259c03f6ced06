package xkafkapool

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xkpool/pkg/mq/xkafka"
)

// TopicStats 是单个订阅槽位的统计信息。
type TopicStats struct {
	Topic string
	// Realized 槽位当前是否持有连接。
	Realized bool
	// Consumer 连接自身的统计，Handle 未提供统计时为零值。
	Consumer xkafka.ConsumerStats
}

// Stats 按订阅顺序返回各槽位的统计信息。
// 连接被重建后计数从零开始。
func (p *Pool) Stats() []TopicStats {
	out := make([]TopicStats, len(p.subs))
	for i, s := range p.subs {
		out[i].Topic = s.Topic
		h := p.handles[i]
		if h == nil {
			continue
		}
		out[i].Realized = true
		if r, ok := h.(statsReporter); ok {
			out[i].Consumer = r.Stats()
		}
	}
	return out
}

// Health 对所有已创建且支持健康检查的连接执行检查，返回合并后的错误。
// 尚未创建的槽位不参与检查，也不会因此被创建。
func (p *Pool) Health(ctx context.Context) error {
	if p.closed {
		return ErrClosed
	}
	var errs []error
	for i, h := range p.handles {
		hc, ok := h.(healthChecker)
		if !ok {
			continue
		}
		if err := hc.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("topic %q: %w", p.subs[i].Topic, err))
		}
	}
	return errors.Join(errs...)
}
