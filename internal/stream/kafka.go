package stream

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"transient-filter/internal/domain"
	"transient-filter/internal/observability"
	"transient-filter/internal/schema"
)

const (
	// kafkaReadTimeout is the maximum time to wait for a batch of messages.
	kafkaReadTimeout = 10 * time.Second
	// kafkaCommitInterval is how often consumed offsets are committed.
	kafkaCommitInterval = 1 * time.Second
)

// KafkaSourceOptions contains configuration for creating a KafkaSource.
type KafkaSourceOptions struct {
	Brokers []string
	Topic   string
	GroupID string
	Mapper  schema.Mapper
	Logger  *log.Logger
}

// KafkaSource consumes survey alert payloads from a Kafka topic and maps
// them into domain alerts. Delivery is at-least-once; downstream dedupe
// handles redelivered alerts.
type KafkaSource struct {
	reader *kafka.Reader
	mapper schema.Mapper
	logger *log.Logger

	out        chan domain.Alert
	done       chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	subscribed atomic.Bool
}

var _ AlertSource = (*KafkaSource)(nil)

// NewKafkaSource creates a Kafka alert source.
// StartOffset only applies when no committed offset exists for the group;
// FirstOffset ensures a fresh group reads the full topic.
func NewKafkaSource(opts KafkaSourceOptions) (*KafkaSource, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if opts.GroupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if opts.Mapper == nil {
		return nil, fmt.Errorf("mapper cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        opts.Brokers,
		Topic:          opts.Topic,
		GroupID:        opts.GroupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        kafkaReadTimeout,
		CommitInterval: kafkaCommitInterval,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaSource{
		reader: reader,
		mapper: opts.Mapper,
		logger: logger,
		out:    make(chan domain.Alert, 256),
		done:   make(chan struct{}),
	}, nil
}

// Subscribe starts the consume loop and returns the alert channel.
func (s *KafkaSource) Subscribe(ctx context.Context) (<-chan domain.Alert, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("source closed")
	}
	if s.subscribed.Swap(true) {
		return nil, fmt.Errorf("already subscribed")
	}

	s.wg.Add(1)
	go s.consumeLoop(ctx)

	return s.out, nil
}

// consumeLoop reads messages until the context is cancelled or the source
// is closed. Payloads that fail schema mapping are counted and skipped;
// they must never stall the partition.
func (s *KafkaSource) consumeLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.out)

	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || s.closed.Load() {
				return
			}

			s.logger.Printf("[kafka] read message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(1 * time.Second):
				continue
			}
		}

		alert, err := s.mapper.Map(msg.Value)
		if err != nil {
			observability.RecordDecodeError()
			s.logger.Printf("[kafka] decode alert at offset %d: %v", msg.Offset, err)
			continue
		}
		alert.ReceivedAt = time.Now().UTC()

		select {
		case s.out <- alert:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// Close stops the consume loop and closes the underlying reader.
func (s *KafkaSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)
	err := s.reader.Close()
	s.wg.Wait()

	if err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}
