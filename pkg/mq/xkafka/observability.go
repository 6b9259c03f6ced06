package xkafka

import "github.com/omeyang/xkpool/pkg/observability/xmetrics"

const (
	componentName = "xkafka"
	systemName    = "kafka"
)

func kafkaAttrs(topic string) []xmetrics.Attr {
	return xmetrics.Messaging(systemName, topic)
}
