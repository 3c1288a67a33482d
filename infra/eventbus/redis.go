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
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisStreamMaxLen = 10000
	redisReadBlock    = 2 * time.Second
	redisRetryDelay   = time.Second
)

// RedisEventBus publishes events to one Redis stream per event type and consumes them
// through a consumer group. Messages whose handler fails are copied to a DLQ stream.
type RedisEventBus struct {
	client *redis.Client
	prefix string
	group  string
	types  eventbus.Factories
	block  time.Duration
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ eventbus.Bus = (*RedisEventBus)(nil)

// NewWithRedis creates a Redis streams bus. Stream names are prefix:aggregate:fact.
func NewWithRedis(opt *redis.Options, prefix, group string, types eventbus.Factories, logger *slog.Logger) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: redis.NewClient(opt),
		prefix: strings.TrimSuffix(prefix, ":"),
		group:  group,
		types:  types,
		block:  redisReadBlock,
		logger: logger.With("bus", "redis"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Ping checks connectivity.
func (b *RedisEventBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisEventBus) streamFor(eventType string) string {
	return nameFor(b.prefix, ":", eventType)
}

// Emit appends the event to its type's stream.
func (b *RedisEventBus) Emit(ctx context.Context, e eventbus.Event) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.streamFor(e.Type()),
		MaxLen: redisStreamMaxLen,
		Approx: true,
		Values: map[string]any{"event": string(data), "key": keyOf(e)},
	}).Err()
	if err != nil {
		b.logger.Error("Failed to emit event", "type", e.Type(), "error", err)
		return fmt.Errorf("redis event bus: emit: %w", err)
	}
	return nil
}

// Register starts a consumer for eventType. It runs until Close.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	stream := b.streamFor(eventType)
	err := b.client.XGroupCreateMkStream(b.ctx, stream, b.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		b.logger.Error("Failed to create consumer group", "stream", stream, "error", err)
	}
	consumer := fmt.Sprintf("%s-%s", b.group, uuid.NewString()[:8])
	b.logger.Info("Registering handler", "stream", stream, "consumer", consumer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(stream, consumer, handler)
	}()
}

func (b *RedisEventBus) consume(stream, consumer string, handler eventbus.HandlerFunc) {
	for {
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    b.block,
		}).Result()
		if b.ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("Failed to read stream", "stream", stream, "error", err)
				select {
				case <-b.ctx.Done():
					return
				case <-time.After(redisRetryDelay):
				}
			}
			continue
		}
		for _, s := range res {
			for _, msg := range s.Messages {
				b.handle(stream, msg, handler)
				if err := b.client.XAck(b.ctx, stream, b.group, msg.ID).Err(); err != nil {
					b.logger.Error("Failed to acknowledge message", "stream", stream, "id", msg.ID, "error", err)
				}
			}
		}
	}
}

func (b *RedisEventBus) handle(stream string, msg redis.XMessage, handler eventbus.HandlerFunc) {
	raw, _ := msg.Values["event"].(string)
	e, err := decode([]byte(raw), b.types)
	if err != nil {
		b.logger.Error("Failed to decode event", "stream", stream, "id", msg.ID, "error", err)
		b.pushToDLQ(stream, msg.Values)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "type", e.Type(), "panic", r)
			b.pushToDLQ(stream, msg.Values)
		}
	}()
	if err := handler(b.ctx, e); err != nil {
		b.logger.Error("Event handler failed", "type", e.Type(), "error", err)
		b.pushToDLQ(stream, msg.Values)
	}
}

func (b *RedisEventBus) pushToDLQ(stream string, values map[string]any) {
	dlq := stream + ":dlq"
	if err := b.client.XAdd(b.ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("Failed to push to DLQ", "stream", dlq, "error", err)
		return
	}
	b.logger.Warn("Event pushed to DLQ", "stream", dlq)
}

// Close stops the consumers and releases the client.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}
