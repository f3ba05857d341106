package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaMirror publishes every trail entry to a Kafka topic so downstream
// compliance and SIEM consumers can tail the trail without touching the
// durable store. The mirror is strictly best-effort: the durable store is the
// source of truth and a produce failure only logs.
type KafkaMirror struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaMirror connects to the brokers and ensures the topic exists.
func NewKafkaMirror(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaMirror, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect audit mirror brokers: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &KafkaMirror{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the event asynchronously, keyed by lead ID so one lead's
// entries land in order on a single partition.
func (m *KafkaMirror) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.WarnContext(ctx, "audit mirror encode failed", "lead_id", event.LeadID, "error", err)
		return
	}
	record := &kgo.Record{Key: []byte(event.LeadID), Value: payload}
	m.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			m.logger.Warn("audit mirror produce failed",
				"topic", m.topic,
				"lead_id", event.LeadID,
				"error", err,
			)
		}
	})
}

// Close flushes outstanding produces and releases the client.
func (m *KafkaMirror) Close(ctx context.Context) error {
	err := m.client.Flush(ctx)
	m.client.Close()
	return err
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	responses, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic %s: %w", topic, err)
	}
	for _, resp := range responses {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", topic, resp.Err)
		}
	}
	return nil
}
