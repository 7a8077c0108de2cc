package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Producer publishes booking events to a single topic. Without brokers it
// runs in mock mode and only logs what it would have sent.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	mockMode bool
	logger   *logrus.Logger
}

// NewProducer connects a synchronous producer. An empty broker list selects mock mode.
func NewProducer(brokers []string, topic string, logger *logrus.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		logger.WithField("topic", topic).Info("Kafka producer running in mock mode")
		return &Producer{topic: topic, mockMode: true, logger: logger}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	logger.WithField("brokers", brokers).Info("Connected to Kafka brokers")
	return NewProducerWith(producer, topic, logger), nil
}

// NewProducerWith wraps an existing SyncProducer
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *Producer {
	return &Producer{producer: producer, topic: topic, logger: logger}
}

// Publish sends one message keyed by key, so events of a booking share a
// partition and keep the order they are published in
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.mockMode {
		p.logger.WithFields(logrus.Fields{
			"topic": p.topic,
			"key":   key,
		}).Debugf("Mock publish: %s", string(value))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", p.topic, err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     p.topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("Booking event published")
	return nil
}

// Close closes the underlying producer
func (p *Producer) Close() error {
	if p.mockMode || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
