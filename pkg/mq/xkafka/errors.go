package xkafka

import (
	"errors"

	"github.com/omeyang/xkpool/internal/mqcore"
)

// 重导出共享错误
var (
	// ErrNilConfig 表示传入的配置为空。
	ErrNilConfig = mqcore.ErrNilConfig

	// ErrClosed 表示消费者已关闭。
	ErrClosed = mqcore.ErrClosed
)

// Kafka 特有错误
var (
	// ErrEmptyTopic 表示订阅的主题为空。
	ErrEmptyTopic = errors.New("xkafka: empty topic")

	// ErrHealthCheckFailed 表示健康检查失败。
	ErrHealthCheckFailed = errors.New("xkafka: health check failed")
)
