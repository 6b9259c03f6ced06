package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Retryer 重试执行器
//
// 组合 RetryPolicy 与 BackoffPolicy，底层使用 avast/retry-go/v5。
type Retryer struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, err error)
}

// RetryerOption 执行器配置选项
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略，nil 被忽略。
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.retryPolicy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略，nil 被忽略。
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoffPolicy = p
		}
	}
}

// WithOnRetry 设置重试回调，attempt 为已失败次数（从 1 开始）。
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// NewRetryer 创建重试执行器，默认 FixedRetry(3) + ExponentialBackoff。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		retryPolicy:   NewFixedRetry(3),
		backoffPolicy: NewExponentialBackoff(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do 执行带重试的操作，返回最后一次失败的错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	return retry.New(r.buildOptions(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// buildOptions 构建 retry-go 的选项。
// attemptCount 为闭包私有状态，每次 Do 重建，互不干扰。
func (r *Retryer) buildOptions(ctx context.Context) []retry.Option {
	retryPolicy := r.retryPolicy
	backoffPolicy := r.backoffPolicy

	attemptCount := 0
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(retryPolicy.MaxAttempts(), 1))),
		retry.RetryIf(func(err error) bool {
			attemptCount++
			return retryPolicy.ShouldRetry(ctx, attemptCount, err)
		}),
		// retry-go v5 中 DelayType 的 n 从 1 开始，与 BackoffPolicy.NextDelay 一致
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return backoffPolicy.NextDelay(safeUintToInt(n))
		}),
		retry.LastErrorOnly(true),
	}
	if r.onRetry != nil {
		// retry-go v5 中 OnRetry 的 n 从 0 开始，转换为 1-based
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(safeUintToInt(n)+1, err)
		}))
	}
	return opts
}

func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
