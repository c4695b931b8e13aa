package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/storefront/internal/poller"
)

// Publisher announces completed checkouts to storefronts.
type Publisher interface {
	PublishCheckoutCompleted(ctx context.Context, ev poller.CheckoutCompleted) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  poller.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishCheckoutCompleted(ctx context.Context, ev poller.CheckoutCompleted) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal checkout event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.CartID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(poller.Topic)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish checkout event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// nopPublisher drops events when no broker is configured.
type nopPublisher struct{}

func (nopPublisher) PublishCheckoutCompleted(context.Context, poller.CheckoutCompleted) error {
	return nil
}

func (nopPublisher) Close() error { return nil }
