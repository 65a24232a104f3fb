// README: Kafka writer initialization for booking events.
package infra

import (
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaOptions struct {
	Brokers      []string
	BatchTimeout time.Duration
}

func NewKafkaWriter(opts KafkaOptions) *kafka.Writer {
	timeout := opts.BatchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
}
