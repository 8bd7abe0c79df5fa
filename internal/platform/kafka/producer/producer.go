// Package producer publishes domain events to Kafka with franz-go. A circuit
// breaker stops a broker outage from stalling the event pump.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"ecommerce/internal/platform/config"
	"ecommerce/pkg/platform/circuit"
	"ecommerce/pkg/platform/events"
)

// ErrCircuitOpen is returned while the broker is considered unhealthy.
var ErrCircuitOpen = errors.New("kafka circuit open")

// Producer implements events.Publisher on a single topic. Records are keyed by
// the event key so one aggregate's events stay ordered.
type Producer struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Producer)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Producer) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Producer) {
		p.metrics = m
	}
}

// New connects to the brokers in cfg. The connection is lazy; use Ping to
// verify reachability.
func New(cfg config.KafkaConfig, opts ...Option) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.OrderTopic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	clientOpts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.OrderTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.PublishTimeout > 0 {
		// records fail instead of retrying forever while brokers are down
		clientOpts = append(clientOpts, kgo.RecordDeliveryTimeout(cfg.PublishTimeout))
	}
	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := &Producer{
		client: client,
		topic:  cfg.OrderTopic,
		breaker: circuit.New("kafka:"+cfg.OrderTopic,
			circuit.WithFailureThreshold(cfg.FailureThreshold),
			circuit.WithCooldown(cfg.Cooldown),
		),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *Producer) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Publish writes the event synchronously. It returns when the broker acks,
// the record's delivery timeout passes or ctx ends.
func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	if !p.breaker.Allow() {
		p.incDropped()
		return ErrCircuitOpen
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Timestamp: event.OccurredAt,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.recordFailure(ctx)
		return fmt.Errorf("produce event %s: %w", event.ID, err)
	}
	p.recordSuccess(ctx)
	p.incPublished(event.Type)
	return nil
}

// Close flushes pending records and closes the client.
func (p *Producer) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		p.logger.WarnContext(ctx, "kafka flush failed", "error", err)
	}
	p.client.Close()
}

func (p *Producer) recordFailure(ctx context.Context) {
	p.incFailed()
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.WarnContext(ctx, "kafka circuit opened", "breaker", p.breaker.Name())
		p.setOpen(true)
	}
}

func (p *Producer) recordSuccess(ctx context.Context) {
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "kafka circuit closed", "breaker", p.breaker.Name())
		p.setOpen(false)
	}
}

func (p *Producer) incPublished(eventType string) {
	if p.metrics != nil {
		p.metrics.Published.WithLabelValues(eventType).Inc()
	}
}

func (p *Producer) incFailed() {
	if p.metrics != nil {
		p.metrics.Failures.Inc()
	}
}

func (p *Producer) incDropped() {
	if p.metrics != nil {
		p.metrics.CircuitDropped.Inc()
	}
}

func (p *Producer) setOpen(open bool) {
	if p.metrics == nil {
		return
	}
	if open {
		p.metrics.CircuitState.Set(1)
	} else {
		p.metrics.CircuitState.Set(0)
	}
}
