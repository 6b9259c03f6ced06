// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持动态级别与 lumberjack 文件轮转
//   - xmetrics: 统一观测接口（追踪 + 指标），默认 OpenTelemetry 实现
//
// 设计原则：
//   - 遵循 OpenTelemetry 消息系统语义规范（messaging.*）
//   - 自动从 context 中的 span 提取 trace_id/span_id 注入日志
package observability
