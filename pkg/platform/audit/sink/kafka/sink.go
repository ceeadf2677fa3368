// Package kafka publishes audit events to a Kafka topic so downstream
// consumers (notifications, analytics) observe registration lifecycle
// changes without polling the database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"entrant/pkg/platform/audit"
	"entrant/pkg/platform/circuit"
	"entrant/pkg/platform/sentinel"
)

// Sink produces one JSON record per audit event, keyed by subject so all
// events of a registration land in one partition in order.
//
// A circuit breaker guards the broker round trip. During a broker outage
// the breaker opens and Append fails fast instead of stacking up produce
// timeouts behind the publisher's worker; the Postgres sink remains the
// durable record.
type Sink struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	skipped atomic.Uint64
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	// CreateTopic reports an error when the topic already exists; treat that
	// as success so restarts are clean.
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, topic); err != nil {
		details, derr := adm.ListTopics(ctx, topic)
		if derr != nil || !details.Has(topic) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
		}
	}

	return &Sink{
		client:  client,
		topic:   topic,
		breaker: circuit.New("audit-kafka"),
	}, nil
}

// probeEvery is how many appends are skipped between broker probes while
// the circuit is open.
const probeEvery = 10

// Append produces the event synchronously. The publisher runs this off the
// request path, so a broker round trip here is acceptable. While the
// circuit is open, most appends fail fast and every probeEvery-th one goes
// to the broker so recovery is noticed.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if s.breaker.IsOpen() && !s.probe() {
		return fmt.Errorf("audit kafka circuit open: %w", sentinel.ErrUnavailable)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		s.breaker.RecordFailure()
		return fmt.Errorf("produce audit event: %w", err)
	}
	s.breaker.RecordSuccess()
	return nil
}

func (s *Sink) probe() bool {
	n := s.skipped.Add(1)
	return n%probeEvery == 0
}

// Close flushes and closes the producer.
func (s *Sink) Close() {
	s.client.Close()
}
