package xkafka

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// fakeRaw 是 rawConsumer 的内存实现，按顺序返回预置事件。
type fakeRaw struct {
	mu sync.Mutex

	events       []kafka.Event
	subscribed   []string
	subscribeErr error

	commitErr  error
	commits    int
	assignment []kafka.TopicPartition
	assignErr  error
	positions  []kafka.TopicPartition
	stored     []kafka.TopicPartition
	storeErr   error
	// autoStore 模拟 enable.auto.offset.store=true：librdkafka 此时拒绝显式存储。
	autoStore    bool
	metadataErr  error
	pollTimeouts []int
	closes       int
	closeErr     error
}

func (f *fakeRaw) Subscribe(topic string, _ kafka.RebalanceCb) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, topic)
	return nil
}

func (f *fakeRaw) Poll(timeoutMs int) kafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollTimeouts = append(f.pollTimeouts, timeoutMs)
	if len(f.events) == 0 {
		return nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev
}

func (f *fakeRaw) Commit() ([]kafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil, f.commitErr
}

func (f *fakeRaw) Assignment() ([]kafka.TopicPartition, error) {
	return f.assignment, f.assignErr
}

func (f *fakeRaw) Position(_ []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	return f.positions, nil
}

func (f *fakeRaw) StoreOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	if f.autoStore {
		return nil, kafka.NewError(kafka.ErrInvalidArg, "Local: Invalid argument or configuration", false)
	}
	f.stored = append(f.stored, offsets...)
	return offsets, nil
}

func (f *fakeRaw) GetMetadata(_ *string, _ bool, _ int) (*kafka.Metadata, error) {
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return &kafka.Metadata{}, nil
}

func (f *fakeRaw) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func strPtr(s string) *string { return &s }

func message(topic string, partition int32, offset int64, value string) *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     strPtr(topic),
			Partition: partition,
			Offset:    kafka.Offset(offset),
		},
		Value: []byte(value),
	}
}
