package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "storefront-receipts",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishReceiptRecorded(ctx context.Context, event ReceiptRecorded) error {
	msg, err := buildReceiptMessage(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func buildReceiptMessage(event ReceiptRecorded) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal receipt event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.Hash), // receipt hash for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("receipt.recorded")},
		},
	}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
