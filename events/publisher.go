// Package events publishes order lifecycle events to Kafka for downstream
// consumers (analytics, notifications). Publishing is fire-and-forget: a
// broker outage never blocks or fails an order operation.
package events

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "events").Logger()

const defaultTopic = "order-events"

type OrderEvent struct {
	Type          string    `json:"type"`
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Total         float64   `json:"total"`
	At            time.Time `json:"at"`
}

// Publisher wraps a kafka writer. A nil Publisher is valid and publishes
// nothing, so callers never need to guard for the broker being unconfigured.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a Publisher from KAFKA_BROKERS (comma separated).
// Returns nil when no brokers are configured.
func NewPublisher() *Publisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return nil
	}
	topic := os.Getenv("KAFKA_ORDER_TOPIC")
	if topic == "" {
		topic = defaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// OrderStatusChanged emits one event per durable order state change.
func (p *Publisher) OrderStatusChanged(ctx context.Context, eventType string, order *models.Order) {
	if p == nil || p.writer == nil {
		return
	}
	event := OrderEvent{
		Type:          eventType,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Total,
		At:            time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode order event")
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.OrderNumber),
		Value: data,
	}); err != nil {
		logger.Warn().Err(err).Str("order", order.OrderNumber).Msg("failed to publish order event")
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
