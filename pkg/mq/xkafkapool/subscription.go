package xkafkapool

import (
	"fmt"
	"maps"
)

// Subscription 描述一个主题订阅及其专属的客户端配置。
type Subscription struct {
	// Topic 订阅的主题，池内唯一。
	Topic string `koanf:"topic"`

	// MaxBytesPerMessage 大于 0 时设置 max.partition.fetch.bytes。
	MaxBytesPerMessage int `koanf:"max_bytes_per_message"`

	// AdditionalOptions 原样合并到该主题连接的客户端配置，优先级最高。
	AdditionalOptions map[string]string `koanf:"additional_options"`

	// StartFromBeginning 为 true 时设置 auto.offset.reset=earliest。
	StartFromBeginning bool `koanf:"start_from_beginning"`
}

func (s Subscription) validate() error {
	if s.Topic == "" {
		return fmt.Errorf("%w: subscription topic is empty", ErrInvalidConfig)
	}
	if s.MaxBytesPerMessage < 0 {
		return fmt.Errorf("%w: topic %q: max_bytes_per_message must not be negative", ErrInvalidConfig, s.Topic)
	}
	return nil
}

func (s Subscription) clone() Subscription {
	s.AdditionalOptions = maps.Clone(s.AdditionalOptions)
	return s
}
