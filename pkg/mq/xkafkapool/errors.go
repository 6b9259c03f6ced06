package xkafkapool

import (
	"errors"

	"github.com/omeyang/xkpool/internal/mqcore"
)

// ErrInvalidConfig 表示池配置无效，New 返回的校验错误均包装此错误。
var ErrInvalidConfig = errors.New("xkafkapool: invalid config")

// 重导出共享错误
var (
	// ErrNilConfig 表示传入的配置为空。
	ErrNilConfig = mqcore.ErrNilConfig

	// ErrClosed 表示池已关闭。
	ErrClosed = mqcore.ErrClosed

	// ErrPartitionEOF 匹配分区 EOF 分类的错误。
	ErrPartitionEOF = mqcore.ErrPartitionEOF

	// ErrMaxPollExceeded 匹配 max.poll.interval.ms 超时分类的错误。
	ErrMaxPollExceeded = mqcore.ErrMaxPollExceeded

	// ErrNoOffset 匹配无可提交 offset 分类的错误。
	ErrNoOffset = mqcore.ErrNoOffset
)
