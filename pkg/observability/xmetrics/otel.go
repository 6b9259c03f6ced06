package xmetrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xkpool/xmetrics"
	fallbackName               = "unknown"

	metricOperations = "xkpool.messaging.operations"
	metricDuration   = "xkpool.messaging.duration"
	metricMessages   = "xkpool.messaging.messages"
)

type otelConfig struct {
	name   string
	tracer trace.TracerProvider
	meter  metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation scope 名称，空值忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，nil 忽略。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracer = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meter = provider
		}
	}
}

// instruments 是 Observer 共享的指标集合。
type instruments struct {
	operations metric.Int64Counter
	messages   metric.Int64Counter
	duration   metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	operations, err := meter.Int64Counter(metricOperations,
		metric.WithDescription("messaging operations by component, operation, destination and status"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricOperations, err)
	}
	messages, err := meter.Int64Counter(metricMessages,
		metric.WithDescription("messages handed to the caller"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, metricMessages, err)
	}
	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("messaging operation duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateHistogram, metricDuration, err)
	}
	return &instruments{operations: operations, messages: messages, duration: duration}, nil
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
// 未指定 provider 时使用 otel 全局 provider，未安装 SDK 时退化为 noop。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		name:   defaultInstrumentationName,
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	inst, err := newInstruments(cfg.meter.Meter(cfg.name))
	if err != nil {
		return nil, err
	}
	return &otelObserver{tracer: cfg.tracer.Tracer(cfg.name), inst: inst}, nil
}

type otelObserver struct {
	tracer trace.Tracer
	inst   *instruments
}

// Start 开始一次观测跨度。
//
// 跨度名遵循 messaging 语义约定："<operation> <destination>"；
// 没有 destination 属性时使用 "<component>.<operation>"。
func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := orFallback(opts.Component)
	operation := orFallback(opts.Operation)
	destination := destinationOf(opts.Attrs)

	spanAttrs := append([]attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}, attrsToOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(ctx, spanName(component, operation, destination),
		trace.WithSpanKind(mapSpanKind(opts.Kind)),
		trace.WithAttributes(spanAttrs...),
	)

	labels := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}
	if destination != "" {
		labels = append(labels, attribute.String(KeyMessagingDestination, destination))
	}

	return ctx, &otelSpan{
		span:   span,
		inst:   o.inst,
		ctx:    ctx,
		labels: labels,
		start:  time.Now(),
	}
}

type otelSpan struct {
	span   trace.Span
	inst   *instruments
	ctx    context.Context
	labels []attribute.KeyValue
	start  time.Time
	once   sync.Once
}

// End 结束观测并记录结果，多次调用只生效一次。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.once.Do(func() { s.finish(result) })
}

func (s *otelSpan) finish(result Result) {
	status := resolveStatus(result)
	switch {
	case status == StatusError && result.Err != nil:
		s.span.RecordError(result.Err)
		s.span.SetStatus(codes.Error, result.Err.Error())
	case status == StatusError:
		s.span.SetStatus(codes.Error, "operation failed")
	default:
		if result.Err != nil {
			s.span.RecordError(result.Err)
		}
		s.span.SetStatus(codes.Ok, "")
	}
	if len(result.Attrs) > 0 {
		s.span.SetAttributes(attrsToOTel(result.Attrs)...)
	}
	s.span.End()

	// 请求 context 可能已取消，指标仍需落地。
	ctx := context.WithoutCancel(s.ctx)
	withStatus := metric.WithAttributeSet(attribute.NewSet(
		append(s.labels, attribute.String("status", string(status)))...))
	s.inst.operations.Add(ctx, 1, withStatus)
	s.inst.duration.Record(ctx, time.Since(s.start).Seconds(), withStatus)
	if result.Messages > 0 {
		s.inst.messages.Add(ctx, int64(result.Messages), metric.WithAttributeSet(attribute.NewSet(s.labels...)))
	}
}

func orFallback(s string) string {
	if s == "" {
		return fallbackName
	}
	return s
}

func spanName(component, operation, destination string) string {
	if destination != "" {
		return operation + " " + destination
	}
	return component + "." + operation
}

func destinationOf(attrs []Attr) string {
	for _, a := range attrs {
		if a.Key != KeyMessagingDestination {
			continue
		}
		if s, ok := a.Value.(string); ok {
			return s
		}
	}
	return ""
}

func resolveStatus(result Result) Status {
	switch {
	case result.Status != "":
		return result.Status
	case result.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

func mapSpanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindClient:
		return trace.SpanKindClient
	case KindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

// attrsToOTel 转换属性，空 key 与 nil 值被丢弃，Duration 记为纳秒。
func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		out = append(out, toKeyValue(a.Key, a.Value))
	}
	return out
}

func toKeyValue(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case time.Duration:
		return attribute.Int64(key, v.Nanoseconds())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
