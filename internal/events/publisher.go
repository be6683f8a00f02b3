// Package events moves payment notifications through Kafka: the webhook
// receiver publishes captures, the poller clears paid carts.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

const Topic = "payment-events"

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers ...string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// PublishPaymentEvent keys messages by owner so one payer's events stay
// ordered.
func (p *Publisher) PublishPaymentEvent(ctx context.Context, event domain.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("payment." + event.Status)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish payment event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
