// Package mqcore 提供消息队列的共享核心功能。
//
// 本包是 internal 包，仅供 pkg/mq 下的子包（xkafka 适配层、xkafkapool 消费者池）内部使用。
// 外部用户不应直接导入此包。
//
// 依赖策略: 本包只依赖标准库，作为 MQ 族的共享内核（shared kernel）。
// 依赖链为：xkafkapool → xkafka → internal/mqcore，
// xkafkapool 只通过本包的错误分类读取 broker 错误，不接触具体错误码。
//
// 主要功能：
//   - 共享错误定义（ErrClosed 等）
//   - 错误分类（Kind）：将 broker 的瞬时状态收敛为封闭的枚举
//   - KindError：适配层在边界处给 broker 错误打上分类标签
package mqcore
