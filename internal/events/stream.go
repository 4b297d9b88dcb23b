// Package events emits analytics records to kafka for the reporting
// pipeline. Like the notify channels it is best-effort: a broker outage is
// logged, never propagated into checkout or fulfillment.
package events

import (
	"context"
	"encoding/json"
	"io"
	"log"

	"github.com/twmb/franz-go/pkg/kgo"
)

type Stream interface {
	Emit(ctx context.Context, topic string, key string, record interface{}) error
}

type KafkaStream struct {
	client *kgo.Client
	logger *log.Logger
}

func NewKafkaStream(client *kgo.Client, logger *log.Logger) *KafkaStream {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &KafkaStream{client: client, logger: logger}
}

func (s *KafkaStream) Emit(ctx context.Context, topic, key string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Printf("events: marshal topic=%s error=%v", topic, err)
		return err
	}
	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		s.logger.Printf("events: produce topic=%s error=%v", topic, err)
		return err
	}
	return nil
}

// Nop is used in tests and when no brokers are configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, string, interface{}) error { return nil }
