package xmetrics

// 消息系统属性 key，参考 OpenTelemetry messaging 语义约定。
const (
	KeyMessagingSystem      = "messaging.system"
	KeyMessagingDestination = "messaging.destination"
	KeyBatchSize            = "messaging.batch.message_count"
)

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Messaging 返回消息系统的标准属性，destination 为空时省略。
func Messaging(system, destination string) []Attr {
	attrs := []Attr{String(KeyMessagingSystem, system)}
	if destination != "" {
		attrs = append(attrs, String(KeyMessagingDestination, destination))
	}
	return attrs
}

// Any 创建任意类型属性，非基础类型按 fmt.Sprint 转为字符串。
func Any(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}
