package xkafkapool

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/internal/mqcore"
	"github.com/omeyang/xkpool/pkg/observability/xlog"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
)

const (
	attrPartitionEOF = "messaging.kafka.partition_eof"
	attrReceived     = "messaging.kafka.message_received"
)

// Poll 从当前槽位拉取一条消息。
//
//   - 收到消息：返回消息，游标不变
//   - 无数据：轮转到下一个槽位，返回 (nil, nil)
//   - 分区 EOF：置位 LastPollReadPartitionEOF、轮转，返回 (nil, nil)
//   - max.poll.interval.ms 超时：销毁当前连接、轮转并整体重试一次，
//     重试仍失败则返回重试的错误
//   - 其他错误：原样返回
func (p *Pool) Poll(ctx context.Context, timeout time.Duration) (msg *kafka.Message, err error) {
	if p.closed {
		return nil, ErrClosed
	}

	ctx, span := xmetrics.Start(ctx, p.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "poll",
		Kind:      xmetrics.KindConsumer,
		Attrs:     xmetrics.Messaging(systemName, p.CurrentTopic()),
	})
	defer func() {
		res := xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{
			xmetrics.Bool(attrPartitionEOF, p.lastPollEOF),
			xmetrics.Bool(attrReceived, msg != nil),
		}}
		if msg != nil {
			res.Messages = 1
		}
		span.End(res)
	}()

	msg, err = p.pollOnce(ctx, timeout)
	if mqcore.KindOf(err) == mqcore.KindMaxPollExceeded {
		p.evict(ctx, err)
		msg, err = p.pollOnce(ctx, timeout)
	}
	return msg, err
}

func (p *Pool) pollOnce(ctx context.Context, timeout time.Duration) (*kafka.Message, error) {
	p.lastPollEOF = false

	h, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := h.Poll(timeout)
	switch {
	case err == nil && msg != nil:
		return msg, nil
	case err == nil:
		p.SelectNext()
		return nil, nil
	case mqcore.KindOf(err) == mqcore.KindPartitionEOF:
		p.absorbEOF(ctx, err)
		return nil, nil
	default:
		return nil, err
	}
}

func (p *Pool) absorbEOF(ctx context.Context, err error) {
	p.lastPollEOF = true
	p.logger.Debug(ctx, "partition eof", xlog.Topic(p.CurrentTopic()), xlog.Err(err))
	p.SelectNext()
}

// BatchPoll 批量拉取消息，受 FetchMessages 与 FetchWaitMaxTime 双重约束。
//
// 等待预算从上一次完成的 BatchPoll 结束时刻（首次为 New 的时刻）开始计算；
// 若调用时预算已耗尽，本次不拉取，返回空批次并重新开始计时。
//
// 循环持续从当前槽位拉取，直到批次已满、预算耗尽或遇到无数据。
// 分区 EOF 结束循环并保留已收集的消息；max.poll.interval.ms 超时在
// 单次调用内吸收一次（销毁连接、轮转、保留已收集的消息并继续），
// 第二次则返回错误；其他错误返回 (nil, err)，丢弃已收集的消息。
//
// 正常结束时游标前进一个槽位（由 EOF 触发的轮转也算在内），
// 保证高流量主题不会饿死其他主题。吸收过 max.poll.interval.ms 超时的调用例外：
// 驱逐本身已前进一个槽位，结束时还会再前进一次，共前进两个槽位，
// 下一次调用从被驱逐槽位之后的第二个槽位开始。返回的批次不含 nil。
func (p *Pool) BatchPoll(ctx context.Context, timeout time.Duration) (batch []*kafka.Message, err error) {
	if p.closed {
		return nil, ErrClosed
	}

	ctx, span := xmetrics.Start(ctx, p.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "batch_poll",
		Kind:      xmetrics.KindConsumer,
		Attrs:     xmetrics.Messaging(systemName, p.CurrentTopic()),
	})
	defer func() {
		span.End(xmetrics.Result{Err: err, Messages: len(batch), Attrs: []xmetrics.Attr{
			xmetrics.Int(xmetrics.KeyBatchSize, len(batch)),
			xmetrics.Bool(attrPartitionEOF, p.lastPollEOF),
		}})
	}()

	p.batch = make([]*kafka.Message, 0, min(p.cfg.FetchMessages, DefaultFetchMessages))
	p.lastPollEOF = false

	var (
		rotated bool
		evicted bool
	)
loop:
	for len(p.batch) < p.cfg.FetchMessages && p.opts.clock.Since(p.lastBatch) < p.cfg.FetchWaitMaxTime {
		h, err := p.Current(ctx)
		if err != nil {
			return nil, err
		}

		msg, err := h.Poll(timeout)
		if err == nil {
			if msg == nil {
				break
			}
			p.batch = append(p.batch, msg)
			continue
		}

		switch mqcore.KindOf(err) {
		case mqcore.KindPartitionEOF:
			p.absorbEOF(ctx, err)
			rotated = true
			break loop
		case mqcore.KindMaxPollExceeded:
			if evicted {
				return nil, err
			}
			evicted = true
			// 驱逐的轮转不计入结束时的轮转，继续从下一个槽位收集。
			p.evict(ctx, err)
		default:
			return nil, err
		}
	}

	if !rotated {
		p.SelectNext()
	}
	p.lastBatch = p.opts.clock.Now()
	return p.batch, nil
}
