// Package xkafka 提供单主题 Kafka 消费者的边界适配层。
//
// 本包基于 confluent-kafka-go 提供轻量级封装，核心设计原则是：
//   - 透明封装：通过 Consumer() 暴露底层 *kafka.Consumer，不限制高级特性
//   - 错误分类：把 broker 客户端的错误码映射为 mqcore 的封闭分类，
//     上层（xkafkapool）只读分类，不做字符串匹配
//   - 增值功能：健康检查、消费统计
//
// # 事件转换
//
// Poll 把 librdkafka 事件统一为 (*kafka.Message, error)：
//
//	*kafka.Message          → msg, nil（TopicPartition.Error 非空时按错误处理）
//	kafka.PartitionEOF      → nil, KindPartitionEOF
//	kafka.Error             → nil, 按错误码分类后的错误
//	超时 / 其他事件         → nil, nil（无数据）
//
// 错误码映射：
//
//	kafka.ErrPartitionEOF    → mqcore.KindPartitionEOF
//	kafka.ErrMaxPollExceeded → mqcore.KindMaxPollExceeded
//	kafka.ErrNoOffset        → mqcore.KindNoOffset
//	其他                     → 原样返回（KindUnknown）
//
// 分类后的错误仍可通过 errors.As 取出原始 kafka.Error。
//
// # Offset 提交模型
//
// Commit(false) 同步提交当前已存储的 offset。
// Commit(true) 只把当前消费位置写入 offset store，
// 由 librdkafka 按 auto.commit.interval.ms 在后台提交。
// 两种模式下没有可提交内容时都返回 KindNoOffset 分类的错误。
//
// # 并发
//
// Poll 与 librdkafka 一样可以并发调用；Commit、Health、Close 通过互斥锁串行化。
// 消费者池按单 goroutine 使用本类型。
package xkafka
