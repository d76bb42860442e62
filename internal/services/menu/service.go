// Package menu serves the menu catalog. Reads are open to every authenticated
// principal and writes are reserved for managers.
package menu

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

// Service handles menu business logic
type Service struct {
	store  store.Store
	logger *logger.Logger
}

// NewService creates a new menu service
func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{
		store:  st,
		logger: log,
	}
}

func itemNotFound() *apperror.Error {
	return apperror.NotFound("No MenuItem matches the given query.")
}

func categoryNotFound() *apperror.Error {
	return apperror.NotFound("No Category matches the given query.")
}

func slugTaken() *apperror.Error {
	return apperror.Validation("slug", "category with this slug already exists.")
}

func categoryMissing(id int64) *apperror.Error {
	return apperror.Validation("category", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
}

func (s *Service) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	items, err := s.store.ListMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, id int64) (models.MenuItem, error) {
	item, err := s.store.GetMenuItem(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.MenuItem{}, itemNotFound()
		}
		return models.MenuItem{}, fmt.Errorf("get menu item: %w", err)
	}
	return item, nil
}

// CreateItem adds a menu item to an existing category
func (s *Service) CreateItem(ctx context.Context, p models.Principal, req models.MenuItemRequest) (models.MenuItem, error) {
	if !auth.IsManager(p) {
		return models.MenuItem{}, apperror.Forbidden()
	}
	if err := req.Validate(false); err != nil {
		return models.MenuItem{}, err
	}

	var item models.MenuItem
	req.Apply(&item)
	if err := s.store.InsertMenuItem(ctx, &item); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.MenuItem{}, categoryMissing(item.CategoryID)
		}
		return models.MenuItem{}, fmt.Errorf("insert menu item: %w", err)
	}

	s.logger.Info("menu_item_created", fmt.Sprintf("Menu item %d created", item.ID), logger.RequestID(ctx), map[string]interface{}{
		"menu_item_id": item.ID,
		"title":        item.Title,
		"price":        item.Price.String(),
	})
	return item, nil
}

// UpdateItem replaces (partial false) or merges (partial true) a menu item
func (s *Service) UpdateItem(ctx context.Context, p models.Principal, id int64, req models.MenuItemRequest, partial bool) (models.MenuItem, error) {
	if !auth.IsManager(p) {
		return models.MenuItem{}, apperror.Forbidden()
	}
	if err := req.Validate(partial); err != nil {
		return models.MenuItem{}, err
	}

	var item models.MenuItem
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		item, err = tx.GetMenuItem(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return itemNotFound()
			}
			return fmt.Errorf("get menu item: %w", err)
		}
		if !partial {
			item.Featured = false
		}
		req.Apply(&item)
		if err := tx.UpdateMenuItem(ctx, &item); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return categoryMissing(item.CategoryID)
			}
			return fmt.Errorf("update menu item: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	return item, nil
}

// DeleteItem removes a menu item. Items referenced by an order cannot be removed.
func (s *Service) DeleteItem(ctx context.Context, p models.Principal, id int64) error {
	if !auth.IsManager(p) {
		return apperror.Forbidden()
	}
	if err := s.store.DeleteMenuItem(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return itemNotFound()
		case errors.Is(err, store.ErrConflict):
			return apperror.Conflict("Menu item is referenced by existing orders.")
		default:
			return fmt.Errorf("delete menu item: %w", err)
		}
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// CreateCategory adds a category with a unique slug
func (s *Service) CreateCategory(ctx context.Context, p models.Principal, req models.CategoryRequest) (models.Category, error) {
	if !auth.IsManager(p) {
		return models.Category{}, apperror.Forbidden()
	}
	if err := req.Validate(false); err != nil {
		return models.Category{}, err
	}

	var c models.Category
	req.Apply(&c)
	if err := s.store.InsertCategory(ctx, &c); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.Category{}, slugTaken()
		}
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (models.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Category{}, categoryNotFound()
		}
		return models.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// UpdateCategory replaces (partial false) or merges (partial true) a category
func (s *Service) UpdateCategory(ctx context.Context, p models.Principal, id int64, req models.CategoryRequest, partial bool) (models.Category, error) {
	if !auth.IsManager(p) {
		return models.Category{}, apperror.Forbidden()
	}
	if err := req.Validate(partial); err != nil {
		return models.Category{}, err
	}

	var c models.Category
	err := s.store.WithTx(ctx, func(tx store.Repository) error {
		var err error
		c, err = tx.GetCategory(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return categoryNotFound()
			}
			return fmt.Errorf("get category: %w", err)
		}
		req.Apply(&c)
		if err := tx.UpdateCategory(ctx, &c); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return slugTaken()
			}
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category that no menu item belongs to
func (s *Service) DeleteCategory(ctx context.Context, p models.Principal, id int64) error {
	if !auth.IsManager(p) {
		return apperror.Forbidden()
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return categoryNotFound()
		case errors.Is(err, store.ErrConflict):
			return apperror.Conflict("Category still has menu items.")
		default:
			return fmt.Errorf("delete category: %w", err)
		}
	}
	s.logger.Info("category_deleted", fmt.Sprintf("Category %d deleted", id), logger.RequestID(ctx), nil)
	return nil
}
