package xkafkapool

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/pkg/mq/xkafka"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
)

//go:generate mockgen -destination=handle_mock_test.go -package=xkafkapool github.com/omeyang/xkpool/pkg/mq/xkafkapool Handle

// Handle 是绑定单个主题的消费者连接。
//
// Poll 返回 (nil, nil) 表示当前没有数据；错误应由实现方通过
// mqcore.NewKindError 附加分类，池只依据分类决定吸收还是传播。
// *xkafka.Consumer 是默认实现。
type Handle interface {
	Subscribe(topic string) error
	Poll(timeout time.Duration) (*kafka.Message, error)
	Commit(async bool) error
	Close() error
}

// Factory 根据合并后的客户端配置创建 Handle。
type Factory func(cfg *kafka.ConfigMap) (Handle, error)

// healthChecker 与 statsReporter 是 Handle 可选实现的能力。
type healthChecker interface {
	Health(ctx context.Context) error
}

type statsReporter interface {
	Stats() xkafka.ConsumerStats
}

// ConsumerFactory 返回基于 xkafka.NewConsumer 的工厂，是 Pool 的默认工厂。
// 需要在默认工厂外包一层（熔断、限流等）时使用。
func ConsumerFactory(observer xmetrics.Observer, opts ...xkafka.ConsumerOption) Factory {
	opts = append([]xkafka.ConsumerOption{xkafka.WithConsumerObserver(observer)}, opts...)
	return func(cfg *kafka.ConfigMap) (Handle, error) {
		c, err := xkafka.NewConsumer(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

var _ Handle = (*xkafka.Consumer)(nil)
