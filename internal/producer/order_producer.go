package producer

import (
	"context"
	"encoding/json"
	"time"

	"jewelry-backend/internal/service"

	"github.com/segmentio/kafka-go"
)

// OrderEventsProducer publishes order lifecycle events for downstream
// consumers (notifications, analytics). Implements service.EventBus.
type OrderEventsProducer struct {
	writer *kafka.Writer
}

func NewOrderEventsProducer(brokers []string, topic string) *OrderEventsProducer {
	return &OrderEventsProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (p *OrderEventsProducer) publish(ctx context.Context, key, eventType string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(envelope{Type: eventType, Payload: payload})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *OrderEventsProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return p.publish(ctx, e.OrderID.String(), "order.created", e)
}

func (p *OrderEventsProducer) PublishPaymentConfirmed(ctx context.Context, e service.PaymentConfirmedEvent) error {
	return p.publish(ctx, e.OrderID.String(), "payment.confirmed", e)
}

func (p *OrderEventsProducer) PublishOrderCancelled(ctx context.Context, e service.OrderCancelledEvent) error {
	return p.publish(ctx, e.OrderID.String(), "order.cancelled", e)
}

func (p *OrderEventsProducer) Close() error {
	return p.writer.Close()
}
