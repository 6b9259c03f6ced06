// Package xretry 提供重试策略、退避策略及基于 retry-go 的执行器。
//
// # 设计理念
//
// xretry 采用接口驱动设计：
//   - RetryPolicy：定义是否应该重试
//   - BackoffPolicy：定义重试间隔时间
//
// 底层使用 [avast/retry-go/v5] 实现重试逻辑。
//
// 在本仓库中，xretry 的典型用途是进程级监督：消费者池把无法就地恢复的
// broker 错误原样返回，由调用方决定是否按退避策略重建整个消费循环。
// 池内部的"驱逐后重试一次"语义是固定的，不经过 xretry。
//
// # 使用方式
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewFixedRetry(5)),
//	    xretry.WithBackoffPolicy(xretry.NewExponentialBackoff()),
//	)
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    return consumeUntilFatal(ctx)
//	})
//
// # 错误分类
//
//   - NewPermanentError(err)：标记为永久性错误（例如配置错误），不会重试
//   - 其他错误默认可重试
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
