package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"kir/internal/common/events"
	"kir/internal/common/logging"
)

// Record headers set on every published event.
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderCorrelationID = "correlation_id"
)

// Publisher writes outbox envelopes to one topic, keyed by aggregate ID so every
// event of a record lands on the same partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects to brokers. Close releases the client.
func NewPublisher(brokers []string, topic string, opts ...kgo.Opt) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// Publish produces envelopes and waits until the broker acknowledged all of them.
func (p *Publisher) Publish(ctx context.Context, envelopes []events.EventEnvelope) error {
	if len(envelopes) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(envelopes))
	for _, env := range envelopes {
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", env.EventID, err)
		}
		headers := []kgo.RecordHeader{
			{Key: HeaderEventType, Value: []byte(env.EventType)},
			{Key: HeaderEventID, Value: []byte(env.EventID.String())},
		}
		if !env.CorrelationID.IsEmpty() {
			headers = append(headers, kgo.RecordHeader{Key: HeaderCorrelationID, Value: []byte(env.CorrelationID.String())})
		}
		records = append(records, &kgo.Record{
			Topic:   p.topic,
			Key:     []byte(env.AggregateID),
			Value:   value,
			Headers: headers,
		})
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d events: %w", len(records), err)
	}
	logging.DebugContext(ctx, "published record events", "count", len(records), "topic", p.topic)
	return nil
}

// Ping checks that at least one broker answers.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close releases the client. Publish is synchronous, so nothing is left buffered.
func (p *Publisher) Close() {
	p.client.Close()
}
