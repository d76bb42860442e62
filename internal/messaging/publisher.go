package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"little-lemon/internal/logger"
	"little-lemon/internal/models"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a new message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishOrderEvent publishes an order lifecycle event to the events fanout exchange
func (p *Publisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     event.EventID,
		CorrelationId: fmt.Sprintf("order-%d", event.OrderID),
		Type:          event.Type,
		Timestamp:     time.Now().UTC(),
		Body:          body,
		Headers: amqp091.Table{
			"x-source": "api-service",
		},
	}

	ch := p.conn.Channel()
	if ch == nil {
		return ErrChannelClosed
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		OrderEventsExchange, // exchange
		event.Type,          // routing key
		false,               // mandatory
		false,               // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published %s for order %d", event.Type, event.OrderID),
		logger.RequestID(ctx), map[string]interface{}{
			"exchange":     OrderEventsExchange,
			"event_id":     event.EventID,
			"message_size": len(body),
		})

	return nil
}

// NopPublisher drops events; used when RabbitMQ is disabled
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, *models.OrderEvent) error { return nil }
