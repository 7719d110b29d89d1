package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sanctum/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the Kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka publishes critical events to a topic, keyed by principal so one
// principal's alerts stay ordered within a partition.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

// NewKafkaClient connects to brokers and ensures the alert topic exists.
func NewKafkaClient(ctx context.Context, brokers []string, topic string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create alert topic: %w", err)
	}
	for _, t := range resp.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create alert topic %s: %w", t.Topic, t.Err)
		}
	}
	return client, nil
}

func (k *Kafka) Alert(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.PrincipalID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "severity", Value: []byte(event.Severity)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce alert: %w", err)
	}
	return nil
}
