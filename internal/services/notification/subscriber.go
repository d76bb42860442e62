// Package notification prints order lifecycle events as they arrive.
package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"little-lemon/internal/logger"
	"little-lemon/internal/messaging"
	"little-lemon/internal/models"
)

// Source delivers raw event messages to a handler until ctx is done
type Source interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber handles order event messages
type Subscriber struct {
	source Source
	logger *logger.Logger
	out    io.Writer
}

// NewSubscriber creates a new notification subscriber writing notices to out
func NewSubscriber(source Source, log *logger.Logger, out io.Writer) *Subscriber {
	return &Subscriber{
		source: source,
		logger: log,
		out:    out,
	}
}

// Start consumes events until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.source.StartConsuming(ctx, s.HandleMessage)
	if closeErr := s.source.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume order events: %w", err)
	}

	s.logger.Info("graceful_shutdown", "Notification subscriber stopped", requestID, nil)
	return nil
}

// HandleMessage decodes one order event and prints a notice for it
func (s *Subscriber) HandleMessage(ctx context.Context, body []byte) error {
	requestID := logger.RequestID(ctx)

	var event models.OrderEvent
	if err := messaging.ParseMessage(body, &event); err != nil {
		return fmt.Errorf("failed to parse order event: %w", err)
	}
	if event.Type == "" || event.OrderID <= 0 {
		return fmt.Errorf("order event %q is missing type or order id", event.EventID)
	}

	if _, err := fmt.Fprintln(s.out, FormatNotification(&event)); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}

	s.logger.Info("notification_displayed", "Order notification displayed", requestID, map[string]interface{}{
		"event_id":   event.EventID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
		"status":     event.Status,
		"changed_by": event.ChangedBy,
	})
	return nil
}

// FormatNotification renders an event as a one-line human-readable notice
func FormatNotification(event *models.OrderEvent) string {
	timestamp := event.Timestamp.Format("2006-01-02 15:04:05")

	switch event.Type {
	case models.EventOrderPlaced:
		return fmt.Sprintf("[%s] Order %d placed by customer %d, total %s.",
			timestamp, event.OrderID, event.CustomerID, event.Total.StringFixed(2))
	case models.EventOrderAssigned:
		agent := "nobody"
		if event.DeliveryAgentID != nil {
			agent = fmt.Sprintf("delivery agent %d", *event.DeliveryAgentID)
		}
		return fmt.Sprintf("[%s] Order %d assigned to %s.", timestamp, event.OrderID, agent)
	case models.EventOrderDeleted:
		return fmt.Sprintf("[%s] Order %d was deleted.", timestamp, event.OrderID)
	}

	if slices.Contains(event.ChangedFields, models.FieldStatus) {
		switch event.Status {
		case models.StatusOutForDelivery:
			return fmt.Sprintf("[%s] Order %d is out for delivery.", timestamp, event.OrderID)
		case models.StatusDelivered:
			return fmt.Sprintf("[%s] Order %d has been delivered.", timestamp, event.OrderID)
		}
	}
	return fmt.Sprintf("[%s] Order %d updated by user %d: %s.",
		timestamp, event.OrderID, event.ChangedBy, strings.Join(event.ChangedFields, ", "))
}
