// Package producer publishes records to Kafka with franz-go.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is a synchronous, all-ISR-acked producer.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

func New(brokers []string, logger *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{client: client, logger: logger}, nil
}

// EnsureTopic creates topic if it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, topic string, partitions int32, replication int16) error {
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopic(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	if resp.Err == nil {
		p.logger.Info("kafka topic created",
			"topic", topic,
			"partitions", partitions,
			"replication", replication,
		)
	}
	return nil
}

// Publish blocks until the record is acknowledged.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}
