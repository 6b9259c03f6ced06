// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// # 设计理念
//
// xmetrics 仅定义最小化接口：Observer/Span/Attr，
// 业务代码只依赖接口；具体实现可替换。
// 默认实现基于 OpenTelemetry，兼容主流可观测栈。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xkafkapool",
//		Operation: "batch_poll",
//		Kind:      xmetrics.KindConsumer,
//		Attrs:     xmetrics.Messaging("kafka", "orders"),
//	})
//	defer span.End(xmetrics.Result{Err: err, Messages: len(batch)})
//
// # 指标命名
//
//   - xkpool.messaging.operations：操作次数，属性 component / operation / messaging.destination / status
//   - xkpool.messaging.duration：操作耗时（秒），属性同上
//   - xkpool.messaging.messages：交付给调用方的消息数，属性 component / operation / messaging.destination
//
// 跨度名为 "<operation> <destination>"，无 destination 时为 "<component>.<operation>"。
package xmetrics
