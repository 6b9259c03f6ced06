package mqcore

import (
	"errors"
	"strconv"
)

// Kind 是 broker 错误的封闭分类。
//
// 分类只在边界适配层（如 xkafka）根据 broker 客户端稳定的错误码确定，
// 上层逻辑通过 KindOf 读取，不做字符串匹配。
type Kind int

const (
	// KindUnknown 表示未被识别的错误，调用方应原样向上传播。
	KindUnknown Kind = iota
	// KindPartitionEOF 表示分区已读到末尾，属于正常的稳态信号。
	KindPartitionEOF
	// KindMaxPollExceeded 表示消费者因 poll 过慢被踢出消费组，需要重建连接。
	KindMaxPollExceeded
	// KindNoOffset 表示没有需要提交的 offset。
	KindNoOffset
)

// String 返回 Kind 的可读字符串表示。
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindPartitionEOF:
		return "partition_eof"
	case KindMaxPollExceeded:
		return "max_poll_exceeded"
	case KindNoOffset:
		return "no_offset"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// sentinel 返回与 Kind 对应的哨兵错误，KindUnknown 返回 nil。
func (k Kind) sentinel() error {
	switch k {
	case KindPartitionEOF:
		return ErrPartitionEOF
	case KindMaxPollExceeded:
		return ErrMaxPollExceeded
	case KindNoOffset:
		return ErrNoOffset
	default:
		return nil
	}
}

// KindError 为 broker 原始错误附加分类。
//
// Unwrap 返回原始错误，因此 errors.As 仍可取出 broker 客户端的错误类型；
// Is 额外匹配与 Kind 对应的哨兵错误，例如 errors.Is(err, ErrPartitionEOF)。
type KindError struct {
	Kind Kind
	Err  error
}

// NewKindError 创建带分类的错误。err 为 nil 时使用 Kind 对应的哨兵错误。
func NewKindError(kind Kind, err error) *KindError {
	if err == nil {
		err = kind.sentinel()
	}
	return &KindError{Kind: kind, Err: err}
}

// Error 实现 error 接口。
func (e *KindError) Error() string {
	if e.Err == nil {
		return "mq: " + e.Kind.String()
	}
	return e.Err.Error()
}

// Unwrap 返回原始错误。
func (e *KindError) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is(err, ErrPartitionEOF) 等哨兵判断。
func (e *KindError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf 返回 err 链上第一个 KindError 的分类。
// err 为 nil 或未分类时返回 KindUnknown。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindUnknown
}
