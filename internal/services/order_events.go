package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/models"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published for downstream consumers after an order changes.
type OrderEvent struct {
	Type          string               `json:"type"`
	OrderID       string               `json:"order_id"`
	ShopID        string               `json:"shop_id"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	TotalAmount   float64              `json:"total_amount"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func newOrderEvent(eventType string, order *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          eventType,
		OrderID:       order.OrderID,
		ShopID:        order.ShopID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
		OccurredAt:    at,
	}
}

// EventPublisher emits order events.
type EventPublisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
}

// KafkaEventPublisher writes events to a Kafka topic keyed by order id so all
// events of one order land on the same partition.
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisher returns a Kafka publisher, or a no-op one when no
// brokers are configured.
func NewEventPublisher(brokers []string, topic string) EventPublisher {
	addrs := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		logrus.Info("KAFKA_BROKERS not configured, order events disabled")
		return NoopEventPublisher{}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("count", len(messages)).Error("order event delivery failed")
			}
		},
	}
	return &KafkaEventPublisher{writer: w}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	})
}

// Close flushes pending messages.
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, OrderEvent) error { return nil }
