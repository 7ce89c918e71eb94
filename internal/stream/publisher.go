package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"transient-filter/internal/domain"
)

// kafkaWriteTimeout is the maximum time to wait for a Kafka write.
const kafkaWriteTimeout = 10 * time.Second

// PublisherOptions contains configuration for creating a KafkaPublisher.
type PublisherOptions struct {
	Brokers    []string
	IntraTopic string
	InterTopic string
	Logger     *log.Logger
}

// KafkaPublisher writes discovery candidates to the per-outcome discovery
// topics. Writes are synchronous with leader acks so a publish error
// surfaces to the caller instead of vanishing in a background batch.
type KafkaPublisher struct {
	writer     *kafka.Writer
	intraTopic string
	interTopic string
	logger     *log.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher for the intra- and inter-night
// discovery topics. Topic creation is attempted best effort; failures are
// logged and publishing proceeds against broker auto-creation or manual
// topic setup.
func NewKafkaPublisher(opts PublisherOptions) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if opts.IntraTopic == "" || opts.InterTopic == "" {
		return nil, fmt.Errorf("discovery topics cannot be empty")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	createTopicIfNotExists(opts.Brokers[0], opts.IntraTopic, logger)
	createTopicIfNotExists(opts.Brokers[0], opts.InterTopic, logger)

	// Topic is set per message so one writer serves both channels.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Balancer:     &kafka.Hash{},
		WriteTimeout: kafkaWriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaPublisher{
		writer:     writer,
		intraTopic: opts.IntraTopic,
		interTopic: opts.InterTopic,
		logger:     logger,
	}, nil
}

// Publish routes a candidate to the topic for its outcome and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, c *domain.DiscoveryCandidate) error {
	msg, err := p.messageFor(c)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write candidate %s: %w", c.CandidateID, err)
	}
	return nil
}

// messageFor builds the Kafka message for a candidate. The key is the
// object ID so all candidates of one object share a partition.
func (p *KafkaPublisher) messageFor(c *domain.DiscoveryCandidate) (kafka.Message, error) {
	topic, err := p.topicFor(c.Outcome)
	if err != nil {
		return kafka.Message{}, err
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal candidate %s: %w", c.CandidateID, err)
	}

	return kafka.Message{
		Topic: topic,
		Key:   []byte(c.ObjectID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "alert_id", Value: []byte(strconv.FormatInt(c.AlertID, 10))},
			{Key: "survey", Value: []byte(c.Survey)},
			{Key: "outcome", Value: []byte(c.Outcome.String())},
		},
		Time: time.UnixMilli(c.CreatedAt),
	}, nil
}

// topicFor maps an outcome to its discovery topic. NO_DISCOVERY has no
// channel and is a caller error.
func (p *KafkaPublisher) topicFor(outcome domain.Outcome) (string, error) {
	switch outcome {
	case domain.OutcomeIntraNight:
		return p.intraTopic, nil
	case domain.OutcomeInterNight:
		return p.interTopic, nil
	default:
		return "", fmt.Errorf("outcome %q has no discovery channel", outcome)
	}
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

// createTopicIfNotExists attempts to create a topic, best effort. Failures
// are logged; the topic may already exist or be created by the broker.
func createTopicIfNotExists(broker, topic string, logger *log.Logger) {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		logger.Printf("[publisher] dial broker %s to create topic %s: %v", broker, topic, err)
		return
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		return
	}

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Printf("[publisher] create topic %s: %v", topic, err)
		return
	}

	logger.Printf("[publisher] created topic %s", topic)
}
