// Package xbreaker 基于 [sony/gobreaker/v2] 提供熔断保护。
//
// 熔断器有三种状态：
//   - StateClosed：正常放行，失败被计数
//   - StateOpen：直接返回 ErrOpenState，不执行操作
//   - StateHalfOpen：超时后放行有限的探测请求，成功则恢复
//
// 熔断判定由 TripPolicy 决定，内置连续失败与失败率两种策略。
//
// 熔断器拒绝时返回 *BreakerError，其 Retryable() 为 false。
// 与 xretry 组合时，重试循环在熔断打开后立即结束，不再退避等待。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
