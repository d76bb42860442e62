// Package store defines the persistence contract shared by the PostgreSQL and
// in-memory backends.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"little-lemon/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness or reference constraint
	ErrConflict = errors.New("record conflicts with existing data")
	// ErrQuantityLimit is returned when a merged cart line would exceed
	// models.MaxCartQuantity
	ErrQuantityLimit = errors.New("cart line quantity limit exceeded")
)

// Repository is the set of queries and writes the services need
type Repository interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByToken(ctx context.Context, token string) (models.User, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (models.Category, error)
	InsertCategory(ctx context.Context, c *models.Category) error
	UpdateCategory(ctx context.Context, c *models.Category) error
	// DeleteCategory fails with ErrConflict while menu items reference it.
	DeleteCategory(ctx context.Context, id int64) error

	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error)
	InsertMenuItem(ctx context.Context, item *models.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *models.MenuItem) error
	DeleteMenuItem(ctx context.Context, id int64) error

	ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	// AddCartLine adds quantity of a menu item to the user's cart, merging with
	// an existing line for the same item. The unit price is refreshed to unitPrice.
	// A merge past models.MaxCartQuantity fails with ErrQuantityLimit.
	AddCartLine(ctx context.Context, userID, menuItemID int64, quantity int, unitPrice decimal.Decimal) (models.CartLine, error)
	ClearCart(ctx context.Context, userID int64) (int64, error)
	// LockCart serializes checkouts of and additions to one user's cart until
	// the enclosing transaction ends.
	LockCart(ctx context.Context, userID int64) error

	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetOrder(ctx context.Context, id int64) (models.Order, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id int64) error

	InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) ([]models.OrderItem, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrderItem(ctx context.Context, id int64) (models.OrderItem, error)
	DeleteOrderItem(ctx context.Context, id int64) error
}

// Store is a Repository that can also run work atomically
type Store interface {
	Repository
	// WithTx runs fn against a transactional view of the store. Every write made
	// through that view is committed when fn returns nil and discarded otherwise.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	Ping(ctx context.Context) error
}
