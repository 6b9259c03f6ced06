package xretry

import "context"

var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = (*NeverRetryPolicy)(nil)
)

// FixedRetryPolicy 最多尝试固定次数，遇到不可重试错误或 ctx 结束时提前停止。
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry 创建固定次数策略，maxAttempts 包含首次尝试，小于 1 按 1 处理。
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	return &FixedRetryPolicy{maxAttempts: max(maxAttempts, 1)}
}

// MaxAttempts 返回包含首次尝试在内的总次数。
func (p *FixedRetryPolicy) MaxAttempts() int { return p.maxAttempts }

// ShouldRetry 判断第 attempt 次失败后是否继续。
func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	return ctx.Err() == nil && attempt < p.maxAttempts && IsRetryable(err)
}

// NeverRetryPolicy 只执行一次。
type NeverRetryPolicy struct{}

// NewNeverRetry 创建只执行一次的策略。
func NewNeverRetry() *NeverRetryPolicy { return &NeverRetryPolicy{} }

// MaxAttempts 恒为 1。
func (*NeverRetryPolicy) MaxAttempts() int { return 1 }

// ShouldRetry 恒为 false。
func (*NeverRetryPolicy) ShouldRetry(context.Context, int, error) bool { return false }

// ForRetries 按"失败后重新执行的次数"选择策略：
// retries <= 0 时只执行一次，否则总共最多执行 retries+1 次。
func ForRetries(retries int) RetryPolicy {
	if retries <= 0 {
		return NewNeverRetry()
	}
	return NewFixedRetry(retries + 1)
}
