package xretry

import (
	"context"
	"time"
)

// RetryPolicy 定义重试策略接口
type RetryPolicy interface {
	// MaxAttempts 返回最大尝试次数（包含首次尝试）
	MaxAttempts() int

	// ShouldRetry 判断是否应该重试，attempt 从 1 开始
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 定义退避策略接口
type BackoffPolicy interface {
	// NextDelay 返回下次重试的延迟时间，attempt 从 1 开始
	NextDelay(attempt int) time.Duration
}
