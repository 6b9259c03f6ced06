// Package mq 提供消息队列相关的子包。
//
// 子包列表：
//   - xkafka: 绑定单个主题的 Kafka 消费者，负责错误分类、提交与健康检查
//   - xkafkapool: 多主题消费者池，按订阅懒建连并轮询，吸收分区 EOF 等可恢复状况
//
// 内部包：
//   - internal/mqcore: 共享的错误分类（Kind）与哨兵错误
package mq
