package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"tillgate/internal/platform/config"
)

// KafkaPublisher emits audit events to a Kafka topic. Emission is
// best-effort from the caller's perspective; admission decisions never
// block on the broker beyond the delivery timeout.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a publisher from config.
// Returns nil if no brokers are configured (Kafka emission disabled).
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if cfg.Brokers == "" {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(cfg.Brokers, ",")...),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &KafkaPublisher{
		client: client,
		topic:  cfg.AuditTopic,
		logger: logger,
	}, nil
}

// Emit publishes one audit event, keyed by subject so events for one
// caller land in one partition.
func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("audit publisher is closed")
	}
	p.mu.RUnlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Subject),
		Value: value,
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.client.Close()
}
