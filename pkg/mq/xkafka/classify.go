package xkafka

import (
	"errors"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/omeyang/xkpool/internal/mqcore"
)

// kindOfCode 把 broker 错误码映射为分类，未识别的错误码返回 KindUnknown。
func kindOfCode(code kafka.ErrorCode) mqcore.Kind {
	switch code {
	case kafka.ErrPartitionEOF:
		return mqcore.KindPartitionEOF
	case kafka.ErrMaxPollExceeded:
		return mqcore.KindMaxPollExceeded
	case kafka.ErrNoOffset:
		return mqcore.KindNoOffset
	default:
		return mqcore.KindUnknown
	}
}

// Classify 为 broker 错误附加分类。
//
// 可识别的 kafka.Error 被包装为 *mqcore.KindError，其余错误（含 nil）原样返回，
// 保证"其他错误原样传播"的约定不被破坏。
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var kerr kafka.Error
	if !errors.As(err, &kerr) {
		return err
	}
	kind := kindOfCode(kerr.Code())
	if kind == mqcore.KindUnknown {
		return err
	}
	return mqcore.NewKindError(kind, err)
}

// convertEvent 把 Poll 返回的事件统一为 (msg, err)。
// 超时（nil 事件）以及重平衡、统计等与数据无关的事件视为无数据。
func convertEvent(ev kafka.Event) (*kafka.Message, error) {
	switch e := ev.(type) {
	case nil:
		return nil, nil
	case *kafka.Message:
		if e.TopicPartition.Error != nil {
			return nil, Classify(e.TopicPartition.Error)
		}
		return e, nil
	case kafka.PartitionEOF:
		tp := kafka.TopicPartition(e)
		return nil, mqcore.NewKindError(mqcore.KindPartitionEOF,
			kafka.NewError(kafka.ErrPartitionEOF, tp.String(), false))
	case kafka.Error:
		return nil, Classify(e)
	default:
		return nil, nil
	}
}
