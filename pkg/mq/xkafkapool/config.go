package xkafkapool

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/pkg/config/xconf"
)

// 默认值
const (
	// DefaultFetchMessages 单次 BatchPoll 的默认最大消息数。
	DefaultFetchMessages = 100

	// DefaultFetchWaitMaxTime 单次 BatchPoll 的默认最长等待时间。
	DefaultFetchWaitMaxTime = time.Second

	// ConfigDelim 加载池配置时推荐的 koanf 键分隔符。
	// Kafka 属性名本身含 "."，使用 "/" 才能按路径访问单个属性。
	ConfigDelim = "/"
)

// Config 是消费者池的配置。
type Config struct {
	// Brokers broker 地址列表，合并为 bootstrap.servers。
	Brokers []string `koanf:"brokers"`

	// GroupID 消费组 ID，所有主题连接共享。
	GroupID string `koanf:"group_id"`

	// ClientID 客户端 ID，为空时不设置 client.id。
	ClientID string `koanf:"client_id"`

	// ConsumerOptions 所有主题连接共享的 librdkafka 属性，覆盖集群默认值。
	ConsumerOptions map[string]string `koanf:"consumer_options"`

	// Subscriptions 订阅列表，顺序即轮询顺序，不能为空。
	Subscriptions []Subscription `koanf:"subscriptions"`

	// FetchMessages 单次 BatchPoll 的最大消息数，0 表示使用默认值。
	FetchMessages int `koanf:"fetch_messages"`

	// FetchWaitMaxTime 单次 BatchPoll 的最长等待时间，0 表示使用默认值。
	FetchWaitMaxTime time.Duration `koanf:"fetch_wait_max_time"`

	// SynchronousCommits 为 true 时 Commit 同步提交并关闭自动提交；
	// 否则由 librdkafka 后台定期提交。
	SynchronousCommits bool `koanf:"synchronous_commits"`
}

// withDefaults 返回填充默认值后的深拷贝，不修改接收者。
func (c *Config) withDefaults() Config {
	out := *c
	out.Brokers = slices.Clone(c.Brokers)
	out.ConsumerOptions = maps.Clone(c.ConsumerOptions)
	out.Subscriptions = make([]Subscription, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		out.Subscriptions[i] = s.clone()
	}
	if out.FetchMessages == 0 {
		out.FetchMessages = DefaultFetchMessages
	}
	if out.FetchWaitMaxTime == 0 {
		out.FetchWaitMaxTime = DefaultFetchWaitMaxTime
	}
	return out
}

// Validate 校验配置，所有错误均包装 ErrInvalidConfig。
// 零值的 FetchMessages/FetchWaitMaxTime 视为使用默认值。
func (c *Config) Validate() error {
	if len(c.Subscriptions) == 0 {
		return fmt.Errorf("%w: at least one subscription is required", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		if err := s.validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Topic]; dup {
			return fmt.Errorf("%w: duplicate subscription for topic %q", ErrInvalidConfig, s.Topic)
		}
		seen[s.Topic] = struct{}{}
	}

	if len(c.Brokers) == 0 && c.ConsumerOptions["bootstrap.servers"] == "" {
		return fmt.Errorf("%w: brokers are required", ErrInvalidConfig)
	}
	if c.GroupID == "" && c.ConsumerOptions["group.id"] == "" {
		return fmt.Errorf("%w: group_id is required", ErrInvalidConfig)
	}
	if c.FetchMessages < 0 {
		return fmt.Errorf("%w: fetch_messages must be at least 1", ErrInvalidConfig)
	}
	if c.FetchWaitMaxTime < 0 {
		return fmt.Errorf("%w: fetch_wait_max_time must be positive", ErrInvalidConfig)
	}
	return nil
}

// ClientConfig 返回 sub 对应连接的合并后客户端配置：
// 集群默认值 < ConsumerOptions < Subscription 级配置。
func (c *Config) ClientConfig(sub Subscription) *kafka.ConfigMap {
	// 异步模式下由 Commit 显式存储 offset、后台自动提交；
	// librdkafka 在自动存储开启时拒绝显式 StoreOffsets，因此两者互斥。
	cm := kafka.ConfigMap{
		"enable.partition.eof":     true,
		"enable.auto.commit":       !c.SynchronousCommits,
		"enable.auto.offset.store": c.SynchronousCommits,
	}
	if len(c.Brokers) > 0 {
		cm["bootstrap.servers"] = strings.Join(c.Brokers, ",")
	}
	if c.GroupID != "" {
		cm["group.id"] = c.GroupID
	}
	if c.ClientID != "" {
		cm["client.id"] = c.ClientID
	}

	for k, v := range c.ConsumerOptions {
		cm[k] = v
	}

	if sub.MaxBytesPerMessage > 0 {
		cm["max.partition.fetch.bytes"] = sub.MaxBytesPerMessage
	}
	if sub.StartFromBeginning {
		cm["auto.offset.reset"] = "earliest"
	}
	for k, v := range sub.AdditionalOptions {
		cm[k] = v
	}
	return &cm
}

// LoadConfig 从 xconf 配置的 path 处反序列化池配置，填充默认值并校验。
// cfg 建议使用 xconf.WithDelim(ConfigDelim) 创建。
func LoadConfig(cfg xconf.Config, path string) (*Config, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	var c Config
	if err := cfg.Unmarshal(path, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := c.withDefaults()
	return &out, nil
}
