package mqcore

import "errors"

// 共享错误定义（xkafka 和 xkafkapool 共同使用）。
// 设计决策: 错误前缀使用 "mq:" 而非 "mqcore:"，因为这些错误被上层包
// 重导出给终端用户，"mq:" 前缀更通用，避免暴露 internal 包名。
var (
	// ErrNilConfig 表示传入的配置为空。
	ErrNilConfig = errors.New("mq: nil config")

	// ErrClosed 表示客户端已关闭。
	ErrClosed = errors.New("mq: client closed")

	// ErrPartitionEOF 表示分区当前没有更多消息。
	ErrPartitionEOF = errors.New("mq: partition eof")

	// ErrMaxPollExceeded 表示两次 poll 间隔超过 max.poll.interval.ms，消费者已被踢出消费组。
	ErrMaxPollExceeded = errors.New("mq: max poll interval exceeded")

	// ErrNoOffset 表示自上次提交以来没有新的 offset 需要提交。
	ErrNoOffset = errors.New("mq: no offset to commit")
)
