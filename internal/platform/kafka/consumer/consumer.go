// Package consumer runs a Kafka consumer group and hands each record to a
// Handler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-neutral view of a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message. Returning nil commits it; an error is
// retried and then skipped.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

type Config struct {
	Brokers       []string
	Group         string
	Topics        []string
	MaxAttempts   int
	RetryInterval time.Duration
}

type Consumer struct {
	client  *kgo.Client
	handler Handler
	cfg     Config
	logger  *slog.Logger
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Group == "" || len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer requires brokers, group and topics")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{client: client, handler: handler, cfg: cfg, logger: logger}, nil
}

// Run polls until ctx is cancelled, committing after each fetch.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			c.process(ctx, toMessage(r))
		})
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *Message) {
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err = c.handler.Handle(ctx, msg); err == nil {
			return
		}
		c.logger.WarnContext(ctx, "message handling failed",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.RetryInterval):
		}
	}
	c.logger.ErrorContext(ctx, "message skipped after retries",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"error", err,
	)
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}
