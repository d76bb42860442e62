package order

import (
	"context"
	"errors"
	"fmt"

	"little-lemon/internal/apperror"
	"little-lemon/internal/auth"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/store"
)

// ListOrderItems returns the items of an order when p owns it or is a
// manager. Anyone else gets an empty list, whether or not the order exists.
func (s *Service) ListOrderItems(ctx context.Context, p models.Principal, orderID int64) ([]models.OrderItem, error) {
	manager := auth.IsManager(p)

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if manager {
				return nil, orderNotFound()
			}
			return []models.OrderItem{}, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.CustomerID != p.ID && !manager {
		return []models.OrderItem{}, nil
	}

	items, err := s.store.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	if items == nil {
		items = []models.OrderItem{}
	}
	return items, nil
}

// DeleteOrderItem removes one item from an order. The order total is left as
// it was at checkout.
func (s *Service) DeleteOrderItem(ctx context.Context, p models.Principal, orderID, itemID int64) error {
	if !auth.IsManager(p) {
		return apperror.Forbidden()
	}

	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		item, err := tx.GetOrderItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.NotFound("No OrderItem matches the given query.")
			}
			return fmt.Errorf("get order item: %w", err)
		}
		if item.OrderID != orderID {
			return apperror.NotFound("No OrderItem matches the given query.")
		}
		if err := tx.DeleteOrderItem(ctx, itemID); err != nil {
			return fmt.Errorf("delete order item: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("order_item_deleted", fmt.Sprintf("Item %d removed from order %d", itemID, orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   orderID,
		"item_id":    itemID,
		"changed_by": p.ID,
	})
	return nil
}
