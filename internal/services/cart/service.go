// Package cart manages each customer's uncommitted cart.
package cart

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

// Service handles cart business logic
type Service struct {
	store  store.Store
	logger *logger.Logger
}

// NewService creates a new cart service
func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{
		store:  st,
		logger: log,
	}
}

// List returns the principal's cart lines
func (s *Service) List(ctx context.Context, p models.Principal) ([]models.CartLine, error) {
	if !auth.IsCustomer(p) {
		return nil, apperror.Forbidden()
	}
	lines, err := s.store.ListCartLines(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return lines, nil
}

// Add puts quantity of a menu item in the principal's cart at the current
// catalog price. Adding an item already in the cart increases its quantity.
func (s *Service) Add(ctx context.Context, p models.Principal, req models.AddToCartRequest) (models.CartLine, error) {
	if !auth.IsCustomer(p) {
		return models.CartLine{}, apperror.Forbidden()
	}
	if err := req.Validate(); err != nil {
		return models.CartLine{}, err
	}

	var line models.CartLine
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		// Queue behind a checkout of the same cart.
		if err := tx.LockCart(ctx, p.ID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		item, err := tx.GetMenuItem(ctx, req.MenuItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperror.Validation("menu_item", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.MenuItemID))
			}
			return fmt.Errorf("get menu item: %w", err)
		}

		line, err = tx.AddCartLine(ctx, p.ID, item.ID, req.Quantity, item.Price)
		if err != nil {
			if errors.Is(err, store.ErrQuantityLimit) {
				return apperror.Validation("quantity", fmt.Sprintf("cart quantity of one item must not exceed %d", models.MaxCartQuantity))
			}
			return fmt.Errorf("add cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.CartLine{}, err
	}

	s.logger.Debug("cart_line_added", "Added menu item to cart", logger.RequestID(ctx), map[string]interface{}{
		"user_id":      p.ID,
		"menu_item_id": line.MenuItemID,
		"quantity":     line.Quantity,
		"line_price":   line.Price.String(),
	})
	return line, nil
}

// Clear removes every line in the principal's cart and reports how many were
// removed. Clearing an empty cart succeeds.
func (s *Service) Clear(ctx context.Context, p models.Principal) (int64, error) {
	if !auth.IsCustomer(p) {
		return 0, apperror.Forbidden()
	}
	n, err := s.store.ClearCart(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	s.logger.Debug("cart_cleared", "Cleared cart", logger.RequestID(ctx), map[string]interface{}{
		"user_id": p.ID,
		"deleted": n,
	})
	return n, nil
}
