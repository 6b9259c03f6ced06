package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 当前统计窗口内的请求计数。
	Counts = gobreaker.Counts

	// State 熔断器状态。
	State = gobreaker.State
)

// 熔断器状态
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// 熔断器拒绝请求时底层返回的错误
var (
	// ErrOpenState 熔断器处于打开状态。
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下探测请求已满。
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)
