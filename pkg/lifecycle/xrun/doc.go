// Package xrun 提供基于 errgroup + context 的进程生命周期管理。
//
// 当任一服务返回错误或收到终止信号时，共享的 context 被取消，
// 所有服务应监听 ctx.Done() 并优雅退出。
//
// 典型用法是把消费循环与配置监视器放进同一个 Group：
//
//	err := xrun.RunWithOptions(ctx, []xrun.Option{
//	    xrun.WithName("xkpool"),
//	    xrun.WithLogger(logger),
//	},
//	    consumeLoop,
//	    watcher.Run,
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常的信号退出
//	}
//
// 消费者池本身不是并发安全的，应只在一个服务中使用。
package xrun
