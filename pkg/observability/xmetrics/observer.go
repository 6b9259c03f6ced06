package xmetrics

import (
	"context"
	"strconv"
)

// Kind 表示观测跨度类型。
type Kind int

const (
	// KindInternal 表示内部操作。
	KindInternal Kind = iota
	// KindClient 表示客户端调用。
	KindClient
	// KindConsumer 表示消息消费。
	KindConsumer
)

// String 返回 Kind 的可读字符串表示。
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	case KindConsumer:
		return "Consumer"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 表示观测结果状态。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusError 表示失败。
	StatusError Status = "error"
)

// Attr 是一个观测属性，Value 支持 string/bool/int/int64/float64/time.Duration，
// 其他类型按 fmt.Sprint 记录。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 描述一次观测跨度。
type SpanOptions struct {
	// Component 组件名，例如 "xkafkapool"。
	Component string
	// Operation 操作名，例如 "batch_poll"。
	Operation string
	Kind      Kind
	// Attrs 携带 KeyMessagingDestination 时，指标按 destination 维度拆分。
	Attrs []Attr
}

// Result 是跨度结束时上报的结果。
type Result struct {
	// Status 为空时根据 Err 推导。
	Status Status
	Err    error
	// Messages 本次操作交付给调用方的消息数，计入消息计数指标。
	Messages int
	Attrs    []Attr
}

// Span 是一次进行中的观测。
type Span interface {
	End(result Result)
}

// Observer 为池、连接与命令行共用的观测入口。
// 返回的 context 携带新跨度，用于日志关联与下游传播。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不记录任何数据，是各组件的默认 Observer。
type NoopObserver struct{}

// Start 原样返回 ctx。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是 NoopObserver 返回的跨度。
type NoopSpan struct{}

// End 不做任何事。
func (NoopSpan) End(_ Result) {}

// Start 使用 observer 开始观测，保证返回非 nil 的 context 和 Span。
//
// 设计决策: ctx 在入口统一归一化，自定义 Observer 返回 nil 值时兜底为 ctx/NoopSpan。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
