// Package order implements the order lifecycle: checkout of a customer's cart
// into an order, role-scoped listing and updates, delivery assignment and the
// read view over an order's items.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"little-lemon/internal/apperror"
	"little-lemon/internal/auth"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/store"
)

// EventPublisher delivers committed order changes to subscribers
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
}

// Service handles order business logic
type Service struct {
	store     store.Store
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new order service
func NewService(st store.Store, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func orderNotFound() *apperror.Error {
	return apperror.NotFound("No Order matches the given query.")
}

// ListOrders returns the orders visible to p. Managers see every order,
// deliverers the orders assigned to them and customers their own orders.
func (s *Service) ListOrders(ctx context.Context, p models.Principal) ([]models.Order, error) {
	role, ok := auth.OrderView(p)
	if !ok {
		return nil, apperror.Forbidden()
	}

	id := p.ID
	var filter models.OrderFilter
	switch role {
	case models.RoleDeliverer:
		filter.DeliveryAgentID = &id
	case models.RoleCustomer:
		filter.CustomerID = &id
	}

	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// CreateOrder checks out p's cart. The order, its items and the emptied cart
// are committed together or not at all.
func (s *Service) CreateOrder(ctx context.Context, p models.Principal) (models.Order, error) {
	if !auth.IsCustomer(p) {
		return models.Order{}, apperror.Forbidden()
	}

	var order models.Order
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.LockCart(ctx, p.ID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}

		lines, err := tx.ListCartLines(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list cart lines: %w", err)
		}
		if len(lines) == 0 {
			return apperror.Validation("cart", "cart is empty")
		}
		total := models.CartTotal(lines)
		if total.GreaterThanOrEqual(models.MaxAmount) {
			return apperror.Validation("cart", "order total must be less than "+models.MaxAmount.String())
		}

		order = models.Order{
			CustomerID: p.ID,
			Status:     models.StatusPlaced,
			Total:      total,
			Date:       s.now().UTC().Truncate(time.Microsecond),
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			items = append(items, models.OrderItem{
				MenuItemID: l.MenuItemID,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice,
				Price:      l.Price,
			})
		}
		order.Items, err = tx.InsertOrderItems(ctx, order.ID, items)
		if err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		cleared, err := tx.ClearCart(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		if cleared != int64(len(lines)) {
			return apperror.Conflict("cart changed during checkout, please retry")
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("order_placed", fmt.Sprintf("Order %d placed", order.ID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"items":       len(order.Items),
		"total":       order.Total.String(),
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderPlaced, order, p.ID, nil))

	return order, nil
}

// UpdateOrder applies patch to an order under the rules of p's governing role.
// With replace set the patch is a whole-record replace, otherwise a merge.
func (s *Service) UpdateOrder(ctx context.Context, p models.Principal, orderID int64, patch models.OrderPatch, replace bool) (models.Order, error) {
	role, ok := auth.OrderView(p)
	if !ok {
		return models.Order{}, apperror.Forbidden()
	}

	switch role {
	case models.RoleManager:
		return s.managerUpdate(ctx, p, orderID, patch, replace)
	case models.RoleDeliverer:
		return s.delivererUpdate(ctx, p, orderID, patch)
	default:
		return models.Order{}, apperror.Forbidden()
	}
}

func (s *Service) managerUpdate(ctx context.Context, p models.Principal, orderID int64, patch models.OrderPatch, replace bool) (models.Order, error) {
	if replace {
		if err := patch.ValidateReplace(); err != nil {
			return models.Order{}, err
		}
	} else if patch.Empty() {
		return models.Order{}, apperror.Validation("body", "no fields to update")
	}

	var order models.Order
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return orderNotFound()
			}
			return fmt.Errorf("get order: %w", err)
		}

		if patch.DeliveryAgentSet && patch.DeliveryAgentID != nil {
			if _, err := tx.GetUser(ctx, *patch.DeliveryAgentID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return apperror.Validation(models.FieldDeliveryAgent,
						fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *patch.DeliveryAgentID))
				}
				return fmt.Errorf("get delivery agent: %w", err)
			}
		}

		patch.Apply(&order, replace)
		if err := tx.UpdateOrder(ctx, &order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	fields := patch.Fields()
	if replace {
		fields = []string{models.FieldDate, models.FieldDeliveryAgent, models.FieldStatus, models.FieldTotal}
	}
	s.logger.Info("order_updated", fmt.Sprintf("Order %d updated by manager", order.ID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   order.ID,
		"changed_by": p.ID,
		"fields":     fields,
		"replace":    replace,
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderUpdated, order, p.ID, fields))

	return order, nil
}

// delivererUpdate lets the assigned deliverer move the status forward.
// Orders assigned to someone else are reported as missing.
func (s *Service) delivererUpdate(ctx context.Context, p models.Principal, orderID int64, patch models.OrderPatch) (models.Order, error) {
	var (
		order    models.Order
		previous models.OrderStatus
	)
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return orderNotFound()
			}
			return fmt.Errorf("get order: %w", err)
		}
		if order.DeliveryAgentID == nil || *order.DeliveryAgentID != p.ID {
			return orderNotFound()
		}

		if patch.Empty() {
			return apperror.Validation(models.FieldStatus, "this field is required")
		}
		if !patch.OnlyStatus() {
			return apperror.Forbidden()
		}
		if !order.Status.CanAdvanceTo(*patch.Status) {
			return apperror.Validation(models.FieldStatus,
				fmt.Sprintf("cannot move order from %s back to %s", order.Status, *patch.Status))
		}

		previous = order.Status
		order.Status = *patch.Status
		if err := tx.UpdateOrder(ctx, &order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("order_status_changed", fmt.Sprintf("Order %d status %s -> %s", order.ID, previous, order.Status), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   order.ID,
		"changed_by": p.ID,
		"old_status": previous,
		"new_status": order.Status,
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderUpdated, order, p.ID, []string{models.FieldStatus}))

	return order, nil
}

// AssignDeliveryAgent sets the delivery agent of an order. Managers and staff
// accounts may assign any existing user.
func (s *Service) AssignDeliveryAgent(ctx context.Context, p models.Principal, orderID, agentID int64) (models.AssignmentConfirmation, error) {
	if !auth.CanAssignDelivery(p) {
		return models.AssignmentConfirmation{}, apperror.Forbidden()
	}
	if agentID <= 0 {
		return models.AssignmentConfirmation{}, apperror.Validation("agent_id", "this field is required")
	}

	var (
		order models.Order
		agent models.User
	)
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return orderNotFound()
			}
			return fmt.Errorf("get order: %w", err)
		}

		agent, err = tx.GetUser(ctx, agentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.NotFound("Delivery agent not found.")
			}
			return fmt.Errorf("get delivery agent: %w", err)
		}

		order.DeliveryAgentID = &agent.ID
		if err := tx.UpdateOrder(ctx, &order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.AssignmentConfirmation{}, err
	}

	s.logger.Info("delivery_agent_assigned", fmt.Sprintf("Order %d assigned to %s", order.ID, agent.Username), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   order.ID,
		"agent_id":   agent.ID,
		"changed_by": p.ID,
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderAssigned, order, p.ID, []string{models.FieldDeliveryAgent}))

	return models.AssignmentConfirmation{
		Message:   fmt.Sprintf("Delivery agent %s assigned to order %d.", agent.Username, order.ID),
		OrderID:   order.ID,
		AgentID:   agent.ID,
		AgentName: agent.Username,
		Order:     order,
	}, nil
}

// DeleteOrder removes an order together with its items
func (s *Service) DeleteOrder(ctx context.Context, p models.Principal, orderID int64) error {
	if !auth.IsManager(p) {
		return apperror.Forbidden()
	}

	var order models.Order
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return orderNotFound()
			}
			return fmt.Errorf("get order: %w", err)
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("order_deleted", fmt.Sprintf("Order %d deleted", orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   orderID,
		"changed_by": p.ID,
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderDeleted, order, p.ID, nil))
	return nil
}

// publish sends an event after its change has committed. A failure is logged
// and does not undo the change.
func (s *Service) publish(ctx context.Context, event *models.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order event", logger.RequestID(ctx), err, map[string]interface{}{
			"event_type": event.Type,
			"order_id":   event.OrderID,
		})
	}
}
