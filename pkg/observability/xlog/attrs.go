package xlog

import "log/slog"

// 常用属性 Key 常量
const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	// KeyTopic 消息主题字段的标准 key
	KeyTopic = "topic"

	// KeyCount 计数字段的标准 key
	KeyCount = "count"

	// KeyTraceID 与 KeySpanID 由 Logger 从 ctx 中的 OpenTelemetry span 自动填充
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
)

// Err 创建错误属性
//
// 如果 err 为 nil，返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Topic 创建主题属性
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, topic)
}

// Count 创建计数属性
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}
