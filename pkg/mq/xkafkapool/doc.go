// Package xkafkapool 把多个单主题 Kafka 消费者组合为一个逻辑消费者。
//
// # 概述
//
// Pool 为每个 Subscription 维护一个独立的消费者连接（Handle），
// 通过轮询游标在它们之间公平地分配 poll，避免高流量主题饿死其他主题。
// 调用方只会看到三种结果：一条消息、空结果、或真正的致命错误。
// 两种瞬态的 broker 状况在池内被吸收：
//
//   - 分区 EOF：记录标志、轮转到下一个主题、返回空结果
//   - 超出 max.poll.interval.ms：销毁当前连接、轮转、整体重试一次
//
// # 懒加载
//
// New 只校验配置并记录订阅列表，不建立任何网络连接。
// 某个槽位第一次成为当前槽位时才创建连接并订阅主题；
// 被 ResetCurrent 销毁的槽位在下一次被选中时重新创建。
//
// # 配置合并
//
// 每个连接的客户端配置按优先级从低到高合并：
//
//	集群默认值 < Config.ConsumerOptions < Subscription 级配置
//
// # 批量拉取
//
// BatchPoll 受数量（FetchMessages）与时间（FetchWaitMaxTime）双重约束。
// 时间从上一次完成的 BatchPoll 结束时刻开始计算，而非本次调用开始，
// 这样调用开销不会在多次迭代中累积蚕食等待预算。
//
// # 并发
//
// Pool 不是并发安全的：同一个 Pool 的所有方法必须在同一个 goroutine 中调用。
// Pool 内部不持有锁，也不启动 goroutine；阻塞只发生在委托的 poll 中，受 timeout 约束。
// ctx 只用于日志与链路追踪，不会中断进行中的 poll。
package xkafkapool
