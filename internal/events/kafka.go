package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the subset of kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures the Kafka sink.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration // default 10s
	Logger       *logrus.Entry
}

// KafkaSink forwards events to a Kafka topic, keyed by event type.
type KafkaSink struct {
	writer  messageWriter
	timeout time.Duration
	logger  *logrus.Entry
}

// NewKafkaSink creates a sink writing to opts.Topic.
func NewKafkaSink(opts KafkaOptions) (*KafkaSink, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	sink := newKafkaSink(w, opts)
	sink.logger.WithFields(logrus.Fields{
		"brokers": opts.Brokers,
		"topic":   opts.Topic,
	}).Debug("kafka sink initialized")
	return sink, nil
}

func newKafkaSink(w messageWriter, opts KafkaOptions) *KafkaSink {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "kafka_sink")
	}
	return &KafkaSink{writer: w, timeout: opts.WriteTimeout, logger: opts.Logger}
}

// Run writes every event from src until ctx is done or src is closed.
// Write failures are logged and the event is skipped.
func (k *KafkaSink) Run(ctx context.Context, src <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-src:
			if !ok {
				return
			}
			if err := k.write(ctx, e); err != nil {
				k.logger.WithError(err).WithField("type", e.Type).Warn("failed to write event")
			}
		}
	}
}

func (k *KafkaSink) write(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Type),
		Value: data,
	})
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
