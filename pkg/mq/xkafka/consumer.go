package xkafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/internal/mqcore"
	"github.com/omeyang/xkpool/pkg/observability/xmetrics"
)

// rawConsumer 是 *kafka.Consumer 中被使用的方法子集，便于测试替换。
type rawConsumer interface {
	Subscribe(topic string, rebalanceCb kafka.RebalanceCb) error
	Poll(timeoutMs int) kafka.Event
	Commit() ([]kafka.TopicPartition, error)
	Assignment() ([]kafka.TopicPartition, error)
	Position(partitions []kafka.TopicPartition) ([]kafka.TopicPartition, error)
	StoreOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error)
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	Close() error
}

// ConsumerStats 包含单个消费者的统计信息。
type ConsumerStats struct {
	// MessagesConsumed 已返回给调用方的消息数量。
	MessagesConsumed int64
	// BytesConsumed 已返回消息的 value 字节数。
	BytesConsumed int64
	// Errors 未被分类（KindUnknown）的 poll/commit 错误次数。
	Errors int64
}

// Consumer 是绑定单个主题的 Kafka 消费者。
//
// 通过 Consumer() 可访问底层 *kafka.Consumer 的全部原生 API。
type Consumer struct {
	raw      rawConsumer
	consumer *kafka.Consumer
	options  *consumerOptions
	topic    atomic.Pointer[string]
	// autoStore 对应 enable.auto.offset.store，开启时 offset 在消息交付时自动存储。
	autoStore bool

	// mu 串行化 Commit、Health、Close 等管理操作。
	mu     sync.Mutex
	closed atomic.Bool

	messagesConsumed atomic.Int64
	bytesConsumed    atomic.Int64
	errorsCount      atomic.Int64
}

// NewConsumer 创建 Kafka 消费者，尚未订阅任何主题。
// config 必须包含 "bootstrap.servers" 与 "group.id"，函数会复制 config，不修改调用方的 ConfigMap。
func NewConsumer(config *kafka.ConfigMap, opts ...ConsumerOption) (*Consumer, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	cloned := &kafka.ConfigMap{}
	for k, v := range *config {
		if err := cloned.SetKey(k, v); err != nil {
			return nil, fmt.Errorf("xkafka: clone config key %q: %w", k, err)
		}
	}

	kc, err := kafka.NewConsumer(cloned)
	if err != nil {
		return nil, err
	}
	c := newConsumer(kc, opts...)
	c.consumer = kc
	c.autoStore = autoOffsetStore(cloned)
	return c, nil
}

// autoOffsetStore 解析 enable.auto.offset.store，未设置时为 librdkafka 默认值 true。
// 值可能是 bool，也可能是来自配置文件的字符串。
func autoOffsetStore(cm *kafka.ConfigMap) bool {
	v, err := cm.Get("enable.auto.offset.store", true)
	if err != nil {
		return true
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err != nil || parsed
	default:
		return true
	}
}

func newConsumer(raw rawConsumer, opts ...ConsumerOption) *Consumer {
	options := defaultConsumerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return &Consumer{raw: raw, options: options}
}

// Consumer 返回底层的 *kafka.Consumer。
func (c *Consumer) Consumer() *kafka.Consumer {
	return c.consumer
}

// Topic 返回已订阅的主题，未订阅时返回空字符串。
func (c *Consumer) Topic() string {
	if t := c.topic.Load(); t != nil {
		return *t
	}
	return ""
}

// Subscribe 订阅单个主题，替换此前的订阅。
func (c *Consumer) Subscribe(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.raw.Subscribe(topic, nil); err != nil {
		return err
	}
	c.topic.Store(&topic)
	return nil
}

// Poll 等待最多 timeout 获取下一个事件并转换为 (msg, err)。
// 返回 (nil, nil) 表示当前没有数据。
func (c *Consumer) Poll(timeout time.Duration) (*kafka.Message, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	msg, err := convertEvent(c.raw.Poll(timeoutMillis(timeout)))
	switch {
	case err != nil:
		if mqcore.KindOf(err) == mqcore.KindUnknown {
			c.errorsCount.Add(1)
		}
		return nil, err
	case msg != nil:
		c.messagesConsumed.Add(1)
		c.bytesConsumed.Add(int64(len(msg.Value)))
	}
	return msg, nil
}

// Commit 提交 offset。
// async 为 false 时同步提交；为 true 时只存储当前位置，由后台提交。
// 开启 enable.auto.offset.store 时 offset 已随消息交付存储，异步提交直接返回 nil。
// 没有可提交的 offset 时返回 KindNoOffset 分类的错误。
func (c *Consumer) Commit(async bool) (err error) {
	if c.closed.Load() {
		return ErrClosed
	}

	_, span := xmetrics.Start(context.Background(), c.options.Observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "commit",
		Kind:      xmetrics.KindClient,
		Attrs:     append(kafkaAttrs(c.Topic()), xmetrics.Bool("messaging.commit.async", async)),
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case async && c.autoStore:
		return nil
	case async:
		err = c.storePositions()
	default:
		_, err = c.raw.Commit()
		err = Classify(err)
	}
	if err != nil && mqcore.KindOf(err) == mqcore.KindUnknown {
		c.errorsCount.Add(1)
	}
	return err
}

// storePositions 把已分配分区的当前消费位置写入 offset store。
func (c *Consumer) storePositions() error {
	assignment, err := c.raw.Assignment()
	if err != nil {
		return Classify(err)
	}
	if len(assignment) == 0 {
		return noOffset("no assigned partitions")
	}

	positions, err := c.raw.Position(assignment)
	if err != nil {
		return Classify(err)
	}

	valid := positions[:0:0]
	for _, tp := range positions {
		if tp.Offset >= 0 {
			valid = append(valid, tp)
		}
	}
	if len(valid) == 0 {
		return noOffset("no consumed positions")
	}

	_, err = c.raw.StoreOffsets(valid)
	return Classify(err)
}

func noOffset(reason string) error {
	return mqcore.NewKindError(mqcore.KindNoOffset, kafka.NewError(kafka.ErrNoOffset, reason, false))
}

// Health 执行健康检查：已分配分区即视为健康，否则通过获取元数据验证连接。
func (c *Consumer) Health(ctx context.Context) (err error) {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, span := xmetrics.Start(ctx, c.options.Observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "health",
		Kind:      xmetrics.KindClient,
		Attrs:     kafkaAttrs(c.Topic()),
	})
	defer func() {
		span.End(xmetrics.Result{Err: err})
	}()

	done := make(chan error, 1)
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		assignment, err := c.raw.Assignment()
		if err != nil {
			done <- fmt.Errorf("%w: %w", ErrHealthCheckFailed, err)
			return
		}
		if len(assignment) == 0 {
			if _, err := c.raw.GetMetadata(nil, true, timeoutMillis(c.options.HealthTimeout)); err != nil {
				done <- fmt.Errorf("%w: %w", ErrHealthCheckFailed, err)
				return
			}
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Stats 返回消费者统计信息。
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		MessagesConsumed: c.messagesConsumed.Load(),
		BytesConsumed:    c.bytesConsumed.Load(),
		Errors:           c.errorsCount.Load(),
	}
}

// Close 关闭消费者，离开消费组。重复调用返回 nil。
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.raw.Close()
}

func timeoutMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	if ms := d.Milliseconds(); ms > 0 {
		return int(ms)
	}
	// 不足 1ms 的超时向上取整，避免变成非阻塞轮询
	return 1
}
