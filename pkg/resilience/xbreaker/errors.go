package xbreaker

import (
	"errors"
	"fmt"
)

// ErrNilFunc 表示传入的操作函数为 nil。
var ErrNilFunc = errors.New("xbreaker: function cannot be nil")

// BreakerError 表示请求被熔断器拒绝（ErrOpenState 或 ErrTooManyRequests）。
//
// Retryable 返回 false：熔断打开说明下游持续失败，退避重试没有意义。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError。
func (e *BreakerError) Retryable() bool {
	return false
}

// wrapRejection 只包装熔断器自身返回的 sentinel，操作返回的错误原样透传，
// 即使其错误链中含有内层熔断器的拒绝。
// 状态由错误类型推导，避免 Execute 返回后再查询 State 的竞态。
func wrapRejection(err error, name string) error {
	switch {
	case err == ErrOpenState: //nolint:errorlint // 只识别本熔断器的直接返回值
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case err == ErrTooManyRequests: //nolint:errorlint // 同上
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 判断 err 是否为熔断打开导致的拒绝。
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsBreakerError 判断 err 是否为熔断器拒绝（打开或半开请求过多）。
func IsBreakerError(err error) bool {
	var be *BreakerError
	return errors.As(err, &be)
}
