package xkafkapool

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xkpool/internal/mqcore"
)

// =============================================================================
// 脚本化的 Handle
// =============================================================================

// step 是 fakeHandle.Poll 的一次返回值。
type step struct {
	msg *kafka.Message
	err error
}

func msgStep(m *kafka.Message) step { return step{msg: m} }

var (
	noData  = step{}
	eofStep = step{err: mqcore.NewKindError(mqcore.KindPartitionEOF,
		kafka.NewError(kafka.ErrPartitionEOF, "partition eof", false))}
	maxPollStep = step{err: mqcore.NewKindError(mqcore.KindMaxPollExceeded,
		kafka.NewError(kafka.ErrMaxPollExceeded, "max poll exceeded", false))}
)

func errStep(err error) step { return step{err: err} }

// fakeHandle 按脚本返回 Poll 结果，脚本耗尽后返回无数据。
type fakeHandle struct {
	id         int
	topic      string
	steps      []step
	polls      int
	subscribes []string
	commits    []bool
	closes     int

	subscribeErr error
	commitErr    error
	closeErr     error
}

func (h *fakeHandle) Subscribe(topic string) error {
	h.subscribes = append(h.subscribes, topic)
	if h.subscribeErr != nil {
		return h.subscribeErr
	}
	h.topic = topic
	return nil
}

func (h *fakeHandle) Poll(time.Duration) (*kafka.Message, error) {
	h.polls++
	if len(h.steps) == 0 {
		return nil, nil
	}
	s := h.steps[0]
	h.steps = h.steps[1:]
	return s.msg, s.err
}

func (h *fakeHandle) Commit(async bool) error {
	h.commits = append(h.commits, async)
	return h.commitErr
}

func (h *fakeHandle) Close() error {
	h.closes++
	return h.closeErr
}

// =============================================================================
// 记录调用的工厂
// =============================================================================

// fakeFactory 为每个主题按需创建 fakeHandle，每次创建都会消费该主题的下一份脚本。
type fakeFactory struct {
	// scripts 按主题记录每次创建连接时使用的 Poll 脚本。
	scripts map[string][][]step
	// prepare 在创建后、返回前调整 handle（例如注入错误）。
	prepare func(h *fakeHandle)
	err     error

	created []*fakeHandle
	configs []*kafka.ConfigMap
}

func (f *fakeFactory) build(cfg *kafka.ConfigMap) (Handle, error) {
	f.configs = append(f.configs, cfg)
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandle{id: len(f.created)}
	f.created = append(f.created, h)
	if f.prepare != nil {
		f.prepare(h)
	}
	return &scriptedHandle{fakeHandle: h, factory: f}, nil
}

// scriptedHandle 在 Subscribe 时按主题装载脚本。
type scriptedHandle struct {
	*fakeHandle
	factory *fakeFactory
}

func (s *scriptedHandle) Subscribe(topic string) error {
	if err := s.fakeHandle.Subscribe(topic); err != nil {
		return err
	}
	if queue := s.factory.scripts[topic]; len(queue) > 0 {
		s.steps = append([]step(nil), queue[0]...)
		s.factory.scripts[topic] = queue[1:]
	}
	return nil
}

// handlesFor 返回为 topic 创建过的所有连接（按创建顺序）。
func (f *fakeFactory) handlesFor(topic string) []*fakeHandle {
	var out []*fakeHandle
	for _, h := range f.created {
		if len(h.subscribes) > 0 && h.subscribes[0] == topic {
			out = append(out, h)
		}
	}
	return out
}

func (f *fakeFactory) totalSubscribes() int {
	n := 0
	for _, h := range f.created {
		n += len(h.subscribes)
	}
	return n
}

// =============================================================================
// 构造辅助
// =============================================================================

func testConfig(topics ...string) *Config {
	cfg := &Config{
		Brokers: []string{"localhost:9092"},
		GroupID: "xkafkapool-test",
	}
	for _, t := range topics {
		cfg.Subscriptions = append(cfg.Subscriptions, Subscription{Topic: t})
	}
	return cfg
}

func newTestPool(t *testing.T, cfg *Config, f *fakeFactory, opts ...Option) (*Pool, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts = append([]Option{WithFactory(f.build), WithClock(clock)}, opts...)
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, clock
}

func testMessage(topic string, offset int64) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:  &topic,
			Offset: kafka.Offset(offset),
		},
		Value: []byte(fmt.Sprintf("%s-%d", topic, offset)),
	}
}

func values(msgs []*kafka.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Value))
	}
	return out
}

var errFatal = kafka.NewError(kafka.ErrAllBrokersDown, "all brokers down", false)

var errPlain = errors.New("plain failure")
