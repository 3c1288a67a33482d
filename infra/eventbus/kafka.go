package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/cashfake/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

const kafkaRetryDelay = time.Second

// KafkaEventBus publishes each event type to its own topic, keyed by the event's key.
type KafkaEventBus struct {
	brokers     []string
	topicPrefix string
	groupID     string
	writer      *kafka.Writer
	types       eventbus.Factories
	logger      *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	readersMu sync.Mutex
	readers   []*kafka.Reader
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)

// NewWithKafka creates a Kafka bus. brokers is a comma-separated list such as
// "localhost:9092,localhost:9093". No connection is made until the first write or read.
func NewWithKafka(brokers, topicPrefix, groupID string, types eventbus.Factories, logger *slog.Logger) (*KafkaEventBus, error) {
	parsed := parseBrokers(brokers)
	if len(parsed) == 0 {
		return nil, errors.New("kafka event bus: brokers are required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaEventBus{
		brokers:     parsed,
		topicPrefix: strings.TrimSuffix(topicPrefix, "."),
		groupID:     groupID,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(parsed...),
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			Balancer:               &kafka.Hash{},
		},
		types:  types,
		logger: logger.With("bus", "kafka"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (b *KafkaEventBus) topicFor(eventType string) string {
	return nameFor(b.topicPrefix, ".", eventType)
}

func (b *KafkaEventBus) message(e eventbus.Event) (kafka.Message, error) {
	data, err := encode(e)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{
		Topic:   b.topicFor(e.Type()),
		Value:   data,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type())}},
		Time:    time.Now(),
	}
	if k := keyOf(e); k != "" {
		msg.Key = []byte(k)
	}
	return msg, nil
}

// Emit writes the event to its type's topic.
func (b *KafkaEventBus) Emit(ctx context.Context, e eventbus.Event) error {
	msg, err := b.message(e)
	if err != nil {
		return err
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error("Failed to emit event", "type", e.Type(), "topic", msg.Topic, "error", err)
		return fmt.Errorf("kafka event bus: emit: %w", err)
	}
	return nil
}

// Register starts a group reader for eventType. It runs until Close.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	topic := b.topicFor(eventType)
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.brokers,
		Topic:   topic,
		GroupID: b.groupID,
	})
	b.readersMu.Lock()
	b.readers = append(b.readers, r)
	b.readersMu.Unlock()
	b.logger.Info("Registering handler", "topic", topic, "group", b.groupID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(r, topic, handler)
	}()
}

func (b *KafkaEventBus) consume(r *kafka.Reader, topic string, handler eventbus.HandlerFunc) {
	for {
		m, err := r.FetchMessage(b.ctx)
		if b.ctx.Err() != nil {
			return
		}
		if err != nil {
			b.logger.Error("Failed to fetch message", "topic", topic, "error", err)
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(kafkaRetryDelay):
			}
			continue
		}
		b.handle(m, handler)
		if err := r.CommitMessages(b.ctx, m); err != nil && b.ctx.Err() == nil {
			b.logger.Error("Failed to commit message", "topic", topic, "offset", m.Offset, "error", err)
		}
	}
}

func (b *KafkaEventBus) handle(m kafka.Message, handler eventbus.HandlerFunc) {
	e, err := decode(m.Value, b.types)
	if err != nil {
		b.logger.Error("Failed to decode event", "topic", m.Topic, "offset", m.Offset, "error", err)
		b.pushToDLQ(m)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "type", e.Type(), "panic", r)
			b.pushToDLQ(m)
		}
	}()
	if err := handler(b.ctx, e); err != nil {
		b.logger.Error("Event handler failed", "type", e.Type(), "error", err)
		b.pushToDLQ(m)
	}
}

func (b *KafkaEventBus) pushToDLQ(m kafka.Message) {
	dlq := kafka.Message{Topic: m.Topic + ".dlq", Key: m.Key, Value: m.Value, Headers: m.Headers, Time: time.Now()}
	if err := b.writer.WriteMessages(b.ctx, dlq); err != nil {
		b.logger.Error("Failed to push to DLQ", "topic", dlq.Topic, "error", err)
		return
	}
	b.logger.Warn("Event pushed to DLQ", "topic", dlq.Topic)
}

// Close stops the readers and flushes the writer.
func (b *KafkaEventBus) Close() error {
	b.cancel()
	b.readersMu.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMu.Unlock()
	b.wg.Wait()
	return b.writer.Close()
}
