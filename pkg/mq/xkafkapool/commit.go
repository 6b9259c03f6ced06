package xkafkapool

import (
	"context"

	"github.com/omeyang/xkpool/internal/mqcore"
	"github.com/omeyang/xkpool/pkg/observability/xlog"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
)

const systemName = "kafka"

// Commit 按订阅顺序提交每个已创建连接的 offset。
//
// SynchronousCommits 为 false 时以异步模式提交。
// 无可提交 offset 的连接被跳过（Debug 日志）；其他错误原样返回，
// 剩余连接本次不再提交。
func (p *Pool) Commit(ctx context.Context) (err error) {
	if p.closed {
		return ErrClosed
	}

	ctx, span := xmetrics.Start(ctx, p.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "commit",
		Kind:      xmetrics.KindConsumer,
		Attrs: append(xmetrics.Messaging(systemName, ""),
			xmetrics.Bool("messaging.kafka.commit.sync", p.cfg.SynchronousCommits)),
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	async := !p.cfg.SynchronousCommits
	for i, h := range p.handles {
		if h == nil {
			continue
		}
		cerr := h.Commit(async)
		if cerr == nil {
			continue
		}
		if mqcore.KindOf(cerr) == mqcore.KindNoOffset {
			p.logger.Debug(ctx, "no offset to commit", xlog.Topic(p.subs[i].Topic))
			continue
		}
		return cerr
	}
	return nil
}
