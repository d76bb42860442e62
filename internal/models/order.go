package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"little-lemon/internal/apperror"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "PLACED"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
)

// ParseOrderStatus accepts a status name in any case
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPlaced, StatusOutForDelivery, StatusDelivered:
		return st, nil
	default:
		return "", fmt.Errorf("status must be one of: PLACED, OUT_FOR_DELIVERY, DELIVERED")
	}
}

// Rank orders statuses along the delivery path
func (s OrderStatus) Rank() int {
	switch s {
	case StatusPlaced:
		return 0
	case StatusOutForDelivery:
		return 1
	case StatusDelivered:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo reports whether next is reachable from s without going backwards
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	return next.Rank() >= 0 && next.Rank() >= s.Rank()
}

// OrderItem is a line of an order, copied from a cart line at checkout
type OrderItem struct {
	ID         int64           `json:"id" db:"id"`
	OrderID    int64           `json:"order" db:"order_id"`
	MenuItemID int64           `json:"menuitem" db:"menu_item_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Price      decimal.Decimal `json:"price" db:"price"`
}

// Order represents a placed customer order
type Order struct {
	ID              int64           `json:"id" db:"id"`
	CustomerID      int64           `json:"customer" db:"user_id"`
	DeliveryAgentID *int64          `json:"delivery_agent" db:"delivery_crew_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	Total           decimal.Decimal `json:"total" db:"total"`
	Date            time.Time       `json:"date" db:"date"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// Field names accepted in an order patch
const (
	FieldStatus        = "status"
	FieldDeliveryAgent = "delivery_agent"
	FieldTotal         = "total"
	FieldDate          = "date"
)

// OrderPatch carries the fields supplied in an order update. DeliveryAgentSet
// distinguishes an explicit null from an absent key.
type OrderPatch struct {
	Status           *OrderStatus
	DeliveryAgentSet bool
	DeliveryAgentID  *int64
	Total            *decimal.Decimal
	Date             *time.Time
}

// UnmarshalJSON decodes a patch, rejecting unknown or immutable keys
func (p *OrderPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperror.Validation("body", "invalid JSON object")
	}

	fields := map[string]string{}
	for key, val := range raw {
		switch key {
		case FieldStatus:
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				fields[key] = "must be a string"
				continue
			}
			st, err := ParseOrderStatus(s)
			if err != nil {
				fields[key] = err.Error()
				continue
			}
			p.Status = &st
		case FieldDeliveryAgent:
			p.DeliveryAgentSet = true
			if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
				p.DeliveryAgentID = nil
				continue
			}
			var id int64
			if err := json.Unmarshal(val, &id); err != nil || id <= 0 {
				fields[key] = "must be a user id or null"
				continue
			}
			p.DeliveryAgentID = &id
		case FieldTotal:
			var d decimal.Decimal
			if err := json.Unmarshal(val, &d); err != nil {
				fields[key] = "must be a decimal number"
				continue
			}
			switch {
			case d.IsNegative():
				fields[key] = "must not be negative"
				continue
			case !WholeCents(d):
				fields[key] = "must have no more than 2 decimal places"
				continue
			case d.GreaterThanOrEqual(MaxAmount):
				fields[key] = "must be less than " + MaxAmount.String()
				continue
			}
			p.Total = &d
		case FieldDate:
			var t time.Time
			if err := json.Unmarshal(val, &t); err != nil {
				fields[key] = "must be an RFC 3339 timestamp"
				continue
			}
			p.Date = &t
		case "id", "customer", "items":
			fields[key] = "this field cannot be modified"
		default:
			fields[key] = "unknown field"
		}
	}

	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// Fields lists the keys present in the patch, sorted
func (p OrderPatch) Fields() []string {
	var out []string
	if p.Status != nil {
		out = append(out, FieldStatus)
	}
	if p.DeliveryAgentSet {
		out = append(out, FieldDeliveryAgent)
	}
	if p.Total != nil {
		out = append(out, FieldTotal)
	}
	if p.Date != nil {
		out = append(out, FieldDate)
	}
	sort.Strings(out)
	return out
}

func (p OrderPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// OnlyStatus reports whether status is the sole field present
func (p OrderPatch) OnlyStatus() bool {
	f := p.Fields()
	return len(f) == 1 && f[0] == FieldStatus
}

// ValidateReplace checks that a whole-record replace supplies every required field.
// A missing delivery_agent means the order is unassigned.
func (p OrderPatch) ValidateReplace() error {
	fields := map[string]string{}
	if p.Status == nil {
		fields[FieldStatus] = "this field is required"
	}
	if p.Total == nil {
		fields[FieldTotal] = "this field is required"
	}
	if p.Date == nil {
		fields[FieldDate] = "this field is required"
	}
	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// Apply writes the present fields onto order. With replace set, an absent
// delivery_agent clears the assignment.
func (p OrderPatch) Apply(order *Order, replace bool) {
	if p.Status != nil {
		order.Status = *p.Status
	}
	if p.DeliveryAgentSet {
		order.DeliveryAgentID = p.DeliveryAgentID
	} else if replace {
		order.DeliveryAgentID = nil
	}
	if p.Total != nil {
		order.Total = *p.Total
	}
	if p.Date != nil {
		order.Date = p.Date.UTC()
	}
}

// AssignAgentRequest is the body of POST /api/orders/{id}/delivery-agent
type AssignAgentRequest struct {
	AgentID int64 `json:"agent_id"`
}

// AssignmentConfirmation is returned after a delivery agent is assigned
type AssignmentConfirmation struct {
	Message   string `json:"message"`
	OrderID   int64  `json:"order_id"`
	AgentID   int64  `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Order     Order  `json:"order"`
}

// OrderFilter narrows an order listing. Nil fields do not filter.
type OrderFilter struct {
	CustomerID      *int64
	DeliveryAgentID *int64
}
