package xkafka

import (
	"time"

	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
)

const defaultHealthTimeout = 5 * time.Second

type consumerOptions struct {
	Observer      xmetrics.Observer
	HealthTimeout time.Duration
}

func defaultConsumerOptions() *consumerOptions {
	return &consumerOptions{
		Observer:      xmetrics.NoopObserver{},
		HealthTimeout: defaultHealthTimeout,
	}
}

// ConsumerOption 定义 Consumer 的配置选项函数。
type ConsumerOption func(*consumerOptions)

// WithConsumerObserver 设置统一观测接口，nil 被忽略。
func WithConsumerObserver(observer xmetrics.Observer) ConsumerOption {
	return func(o *consumerOptions) {
		if observer != nil {
			o.Observer = observer
		}
	}
}

// WithConsumerHealthTimeout 设置健康检查获取元数据的超时时间。
// 默认 5 秒，timeout <= 0 时忽略。
func WithConsumerHealthTimeout(timeout time.Duration) ConsumerOption {
	return func(o *consumerOptions) {
		if timeout > 0 {
			o.HealthTimeout = timeout
		}
	}
}
