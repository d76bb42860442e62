package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"little-lemon/internal/models"
	"little-lemon/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repo runs the store queries against a pool or a transaction
type Repo struct {
	q querier
}

func (r *Repo) GetUser(ctx context.Context, id int64) (models.User, error) {
	return scanUser(r.q.QueryRow(ctx, GetUserByIDSQL, id))
}

func (r *Repo) GetUserByToken(ctx context.Context, token string) (models.User, error) {
	return scanUser(r.q.QueryRow(ctx, GetUserByTokenSQL, token))
}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Token, &u.Admin, &u.Groups); err != nil {
		return models.User{}, mapError(err)
	}
	return u, nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.q.Query(ctx, ListCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Category, error) {
		var c models.Category
		err := row.Scan(&c.ID, &c.Slug, &c.Title)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return out, nil
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (models.Category, error) {
	var c models.Category
	if err := r.q.QueryRow(ctx, GetCategorySQL, id).Scan(&c.ID, &c.Slug, &c.Title); err != nil {
		return models.Category{}, mapError(err)
	}
	return c, nil
}

func (r *Repo) InsertCategory(ctx context.Context, c *models.Category) error {
	if err := r.q.QueryRow(ctx, InsertCategorySQL, c.Slug, c.Title).Scan(&c.ID); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *Repo) UpdateCategory(ctx context.Context, c *models.Category) error {
	return affected(r.q.Exec(ctx, UpdateCategorySQL, c.ID, c.Slug, c.Title))
}

func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, DeleteCategorySQL, id))
}

func (r *Repo) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := r.q.Query(ctx, ListMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.MenuItem, error) {
		return scanMenuItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan menu items: %w", err)
	}
	return out, nil
}

func (r *Repo) GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error) {
	m, err := scanMenuItem(r.q.QueryRow(ctx, GetMenuItemSQL, id))
	if err != nil {
		return models.MenuItem{}, mapError(err)
	}
	return m, nil
}

func scanMenuItem(row pgx.Row) (models.MenuItem, error) {
	var (
		m     models.MenuItem
		price string
	)
	if err := row.Scan(&m.ID, &m.Title, &price, &m.Featured, &m.CategoryID); err != nil {
		return models.MenuItem{}, err
	}
	var err error
	m.Price, err = decimal.NewFromString(price)
	return m, err
}

func (r *Repo) InsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	err := r.q.QueryRow(ctx, InsertMenuItemSQL, item.Title, item.Price.String(), item.Featured, item.CategoryID).Scan(&item.ID)
	return mapError(err)
}

func (r *Repo) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	tag, err := r.q.Exec(ctx, UpdateMenuItemSQL, item.ID, item.Title, item.Price.String(), item.Featured, item.CategoryID)
	return affected(tag, err)
}

func (r *Repo) DeleteMenuItem(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, DeleteMenuItemSQL, id))
}

func (r *Repo) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	rows, err := r.q.Query(ctx, ListCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CartLine, error) {
		return scanCartLine(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	return out, nil
}

func (r *Repo) AddCartLine(ctx context.Context, userID, menuItemID int64, quantity int, unitPrice decimal.Decimal) (models.CartLine, error) {
	if quantity > models.MaxCartQuantity {
		return models.CartLine{}, store.ErrQuantityLimit
	}
	l, err := scanCartLine(r.q.QueryRow(ctx, UpsertCartLineSQL, userID, menuItemID, quantity, unitPrice.String(), models.MaxCartQuantity))
	if err != nil {
		// The conflict branch returns no row when the merge would pass the limit.
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CartLine{}, store.ErrQuantityLimit
		}
		return models.CartLine{}, mapError(err)
	}
	return l, nil
}

func scanCartLine(row pgx.Row) (models.CartLine, error) {
	var (
		l                models.CartLine
		unitPrice, price string
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.MenuItemID, &l.Quantity, &unitPrice, &price); err != nil {
		return models.CartLine{}, err
	}
	var err error
	if l.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return models.CartLine{}, err
	}
	if l.Price, err = decimal.NewFromString(price); err != nil {
		return models.CartLine{}, err
	}
	return l, nil
}

func (r *Repo) ClearCart(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.q.Exec(ctx, ClearCartSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LockCart takes a row lock on the cart owner. Concurrent checkouts and adds by
// the same user queue behind it, so a checkout never clears a line changed
// after it was read.
func (r *Repo) LockCart(ctx context.Context, userID int64) error {
	var id int64
	if err := r.q.QueryRow(ctx, LockUserSQL, userID).Scan(&id); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *Repo) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	rows, err := r.q.Query(ctx, ListOrdersSQL, filter.CustomerID, filter.DeliveryAgentID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return out, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, GetOrderSQL, id))
	if err != nil {
		return models.Order{}, mapError(err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		o     models.Order
		total string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.DeliveryAgentID, &o.Status, &total, &o.Date); err != nil {
		return models.Order{}, err
	}
	var err error
	o.Total, err = decimal.NewFromString(total)
	o.Date = o.Date.UTC()
	return o, err
}

func (r *Repo) InsertOrder(ctx context.Context, order *models.Order) error {
	err := r.q.QueryRow(ctx, InsertOrderSQL,
		order.CustomerID, order.DeliveryAgentID, string(order.Status), order.Total.String(), order.Date,
	).Scan(&order.ID)
	return mapError(err)
}

func (r *Repo) UpdateOrder(ctx context.Context, order *models.Order) error {
	tag, err := r.q.Exec(ctx, UpdateOrderSQL,
		order.ID, order.DeliveryAgentID, string(order.Status), order.Total.String(), order.Date)
	return affected(tag, err)
}

func (r *Repo) DeleteOrder(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, DeleteOrderSQL, id))
}

// InsertOrderItems writes all items in one batch round trip
func (r *Repo) InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) ([]models.OrderItem, error) {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(InsertOrderItemSQL, orderID, it.MenuItemID, it.Quantity, it.UnitPrice.String(), it.Price.String())
	}

	results := r.q.SendBatch(ctx, batch)
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		if err := results.QueryRow().Scan(&it.ID); err != nil {
			results.Close()
			return nil, mapError(err)
		}
		it.OrderID = orderID
		out = append(out, it)
	}
	if err := results.Close(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (r *Repo) ListOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := r.q.Query(ctx, ListOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OrderItem, error) {
		return scanOrderItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan order items: %w", err)
	}
	return out, nil
}

func (r *Repo) GetOrderItem(ctx context.Context, id int64) (models.OrderItem, error) {
	it, err := scanOrderItem(r.q.QueryRow(ctx, GetOrderItemSQL, id))
	if err != nil {
		return models.OrderItem{}, mapError(err)
	}
	return it, nil
}

func scanOrderItem(row pgx.Row) (models.OrderItem, error) {
	var (
		it               models.OrderItem
		unitPrice, price string
	)
	if err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &unitPrice, &price); err != nil {
		return models.OrderItem{}, err
	}
	var err error
	if it.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return models.OrderItem{}, err
	}
	if it.Price, err = decimal.NewFromString(price); err != nil {
		return models.OrderItem{}, err
	}
	return it, nil
}

func (r *Repo) DeleteOrderItem(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, DeleteOrderItemSQL, id))
}

// affected turns a zero-row write into store.ErrNotFound
func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Repository = (*Repo)(nil)
