package xkafka

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.opentelemetry.io/otel/propagation"
)

// defaultPropagator 使用 W3C Trace Context 与 Baggage，与生产端的默认注入保持一致。
var defaultPropagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// headerCarrier 让消息头满足 propagation.TextMapCarrier。
// Kafka 允许重复的头，Get 取最后一个，Set 覆盖全部同名头。
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for i := len(c.msg.Headers) - 1; i >= 0; i-- {
		if c.msg.Headers[i].Key == key {
			return string(c.msg.Headers[i].Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	headers := c.msg.Headers[:0]
	for _, h := range c.msg.Headers {
		if h.Key != key {
			headers = append(headers, h)
		}
	}
	c.msg.Headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// InjectContext 把 ctx 中的追踪上下文写入消息头。msg 为 nil 时什么也不做。
func InjectContext(ctx context.Context, msg *kafka.Message) {
	if msg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defaultPropagator.Inject(ctx, headerCarrier{msg: msg})
}

// ExtractContext 从消息头提取生产端的追踪上下文，作为远端父 span 合并进 ctx。
// 消息没有追踪头时返回的 ctx 与传入的等价。
func ExtractContext(ctx context.Context, msg *kafka.Message) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if msg == nil || len(msg.Headers) == 0 {
		return ctx
	}
	return defaultPropagator.Extract(ctx, headerCarrier{msg: msg})
}
