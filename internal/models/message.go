package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order lifecycle event types published to the events exchange
const (
	EventOrderPlaced   = "order.placed"
	EventOrderUpdated  = "order.updated"
	EventOrderAssigned = "order.assigned"
	EventOrderDeleted  = "order.deleted"
)

// OrderEvent describes a committed change to an order
type OrderEvent struct {
	EventID         string          `json:"event_id"`
	Type            string          `json:"type"`
	OrderID         int64           `json:"order_id"`
	CustomerID      int64           `json:"customer_id"`
	DeliveryAgentID *int64          `json:"delivery_agent_id,omitempty"`
	Status          OrderStatus     `json:"status"`
	Total           decimal.Decimal `json:"total"`
	ChangedBy       int64           `json:"changed_by"`
	ChangedFields   []string        `json:"changed_fields,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// NewOrderEvent snapshots order into an event of the given type
func NewOrderEvent(eventType string, order Order, changedBy int64, changedFields []string) *OrderEvent {
	return &OrderEvent{
		EventID:         uuid.NewString(),
		Type:            eventType,
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		DeliveryAgentID: order.DeliveryAgentID,
		Status:          order.Status,
		Total:           order.Total,
		ChangedBy:       changedBy,
		ChangedFields:   changedFields,
		Timestamp:       time.Now().UTC(),
	}
}
