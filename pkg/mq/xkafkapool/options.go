package xkafkapool

import (
	"github.com/jonboulle/clockwork"

	"github.com/omeyang/xkpool/pkg/observability/xlog"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
)

type poolOptions struct {
	factory  Factory
	logger   xlog.Logger
	observer xmetrics.Observer
	clock    clockwork.Clock
}

func defaultOptions() *poolOptions {
	return &poolOptions{
		logger:   xlog.Discard(),
		observer: xmetrics.NoopObserver{},
		clock:    clockwork.NewRealClock(),
	}
}

// Option 定义 Pool 的配置选项函数。
type Option func(*poolOptions)

// WithFactory 设置 Handle 工厂，nil 被忽略。
// 默认使用 xkafka.NewConsumer，并透传 WithObserver 设置的观测器。
func WithFactory(f Factory) Option {
	return func(o *poolOptions) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithLogger 设置日志记录器，nil 被忽略。默认丢弃日志。
// 被吸收的分区 EOF、无可提交 offset 等状况以 Debug 级别记录。
func WithLogger(logger xlog.Logger) Option {
	return func(o *poolOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置统一观测接口，nil 被忽略。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *poolOptions) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithClock 设置时钟，nil 被忽略。用于测试中控制 BatchPoll 的时间预算。
func WithClock(clock clockwork.Clock) Option {
	return func(o *poolOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}
