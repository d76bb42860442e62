// Package memory is an in-process Store. Transactions hold the store lock and
// work on a copy of the data that replaces the original only on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"little-lemon/internal/models"
	"little-lemon/internal/store"
)

type state struct {
	users      map[int64]models.User
	categories map[int64]models.Category
	menuItems  map[int64]models.MenuItem
	cartLines  map[int64]models.CartLine
	orders     map[int64]models.Order
	orderItems map[int64]models.OrderItem
	nextID     map[string]int64
}

func newState() *state {
	return &state{
		users:      map[int64]models.User{},
		categories: map[int64]models.Category{},
		menuItems:  map[int64]models.MenuItem{},
		cartLines:  map[int64]models.CartLine{},
		orders:     map[int64]models.Order{},
		orderItems: map[int64]models.OrderItem{},
		nextID:     map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		v.Groups = append([]string(nil), v.Groups...)
		c.users[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.menuItems {
		c.menuItems[k] = v
	}
	for k, v := range s.cartLines {
		c.cartLines[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range s.nextID {
		c.nextID[k] = v
	}
	return c
}

func (s *state) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func copyOrder(o models.Order) models.Order {
	if o.DeliveryAgentID != nil {
		id := *o.DeliveryAgentID
		o.DeliveryAgentID = &id
	}
	o.Items = nil
	return o
}

// Store keeps all records in memory
type Store struct {
	mu sync.Mutex
	st *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// AddUser provisions an account with the given token and groups.
func (s *Store) AddUser(username, token string, admin bool, groups ...models.Role) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, string(g))
	}
	u := models.User{
		ID:       s.st.id("users"),
		Username: username,
		Token:    token,
		Admin:    admin,
		Groups:   names,
	}
	s.st.users[u.ID] = u
	return u
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&repo{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// view runs fn against the committed state under the store lock
func (s *Store) view(fn func(r *repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{st: s.st})
}

func (s *Store) GetUser(ctx context.Context, id int64) (u models.User, err error) {
	err = s.view(func(r *repo) error {
		u, err = r.GetUser(ctx, id)
		return err
	})
	return u, err
}

func (s *Store) GetUserByToken(ctx context.Context, token string) (u models.User, err error) {
	err = s.view(func(r *repo) error {
		u, err = r.GetUserByToken(ctx, token)
		return err
	})
	return u, err
}

func (s *Store) ListCategories(ctx context.Context) (out []models.Category, err error) {
	err = s.view(func(r *repo) error {
		out, err = r.ListCategories(ctx)
		return err
	})
	return out, err
}

func (s *Store) GetCategory(ctx context.Context, id int64) (c models.Category, err error) {
	err = s.view(func(r *repo) error {
		c, err = r.GetCategory(ctx, id)
		return err
	})
	return c, err
}

func (s *Store) InsertCategory(ctx context.Context, c *models.Category) error {
	return s.view(func(r *repo) error { return r.InsertCategory(ctx, c) })
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	return s.view(func(r *repo) error { return r.UpdateCategory(ctx, c) })
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.view(func(r *repo) error { return r.DeleteCategory(ctx, id) })
}

func (s *Store) ListMenuItems(ctx context.Context) (out []models.MenuItem, err error) {
	err = s.view(func(r *repo) error {
		out, err = r.ListMenuItems(ctx)
		return err
	})
	return out, err
}

func (s *Store) GetMenuItem(ctx context.Context, id int64) (m models.MenuItem, err error) {
	err = s.view(func(r *repo) error {
		m, err = r.GetMenuItem(ctx, id)
		return err
	})
	return m, err
}

func (s *Store) InsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	return s.view(func(r *repo) error { return r.InsertMenuItem(ctx, item) })
}

func (s *Store) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return s.view(func(r *repo) error { return r.UpdateMenuItem(ctx, item) })
}

func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	return s.view(func(r *repo) error { return r.DeleteMenuItem(ctx, id) })
}

func (s *Store) ListCartLines(ctx context.Context, userID int64) (out []models.CartLine, err error) {
	err = s.view(func(r *repo) error {
		out, err = r.ListCartLines(ctx, userID)
		return err
	})
	return out, err
}

func (s *Store) AddCartLine(ctx context.Context, userID, menuItemID int64, quantity int, unitPrice decimal.Decimal) (l models.CartLine, err error) {
	err = s.view(func(r *repo) error {
		l, err = r.AddCartLine(ctx, userID, menuItemID, quantity, unitPrice)
		return err
	})
	return l, err
}

func (s *Store) ClearCart(ctx context.Context, userID int64) (n int64, err error) {
	err = s.view(func(r *repo) error {
		n, err = r.ClearCart(ctx, userID)
		return err
	})
	return n, err
}

func (s *Store) LockCart(ctx context.Context, userID int64) error {
	return nil
}

func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) (out []models.Order, err error) {
	err = s.view(func(r *repo) error {
		out, err = r.ListOrders(ctx, filter)
		return err
	})
	return out, err
}

func (s *Store) GetOrder(ctx context.Context, id int64) (o models.Order, err error) {
	err = s.view(func(r *repo) error {
		o, err = r.GetOrder(ctx, id)
		return err
	})
	return o, err
}

func (s *Store) InsertOrder(ctx context.Context, order *models.Order) error {
	return s.view(func(r *repo) error { return r.InsertOrder(ctx, order) })
}

func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	return s.view(func(r *repo) error { return r.UpdateOrder(ctx, order) })
}

func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	return s.view(func(r *repo) error { return r.DeleteOrder(ctx, id) })
}

func (s *Store) InsertOrderItems(ctx context.Context, orderID int64, items []models.OrderItem) (out []models.OrderItem, err error) {
	err = s.view(func(r *repo) error {
		out, err = r.InsertOrderItems(ctx, orderID, items)
		return err
	})
	return out, err
}

func (s *Store) ListOrderItems(ctx context.Context, orderID int64) (out []models.OrderItem, err error) {
	err = s.view(func(r *repo) error {
		out, err = r.ListOrderItems(ctx, orderID)
		return err
	})
	return out, err
}

func (s *Store) GetOrderItem(ctx context.Context, id int64) (it models.OrderItem, err error) {
	err = s.view(func(r *repo) error {
		it, err = r.GetOrderItem(ctx, id)
		return err
	})
	return it, err
}

func (s *Store) DeleteOrderItem(ctx context.Context, id int64) error {
	return s.view(func(r *repo) error { return r.DeleteOrderItem(ctx, id) })
}

// repo operates on a state without locking; the caller holds the store lock
type repo struct {
	st *state
}

func (r *repo) GetUser(_ context.Context, id int64) (models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *repo) GetUserByToken(_ context.Context, token string) (models.User, error) {
	for _, u := range r.st.users {
		if u.Token != "" && u.Token == token {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (r *repo) ListCategories(_ context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(r.st.categories))
	for _, c := range r.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) GetCategory(_ context.Context, id int64) (models.Category, error) {
	c, ok := r.st.categories[id]
	if !ok {
		return models.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (r *repo) InsertCategory(_ context.Context, c *models.Category) error {
	for _, existing := range r.st.categories {
		if existing.Slug == c.Slug {
			return store.ErrConflict
		}
	}
	c.ID = r.st.id("categories")
	r.st.categories[c.ID] = *c
	return nil
}

func (r *repo) UpdateCategory(_ context.Context, c *models.Category) error {
	if _, ok := r.st.categories[c.ID]; !ok {
		return store.ErrNotFound
	}
	for id, existing := range r.st.categories {
		if id != c.ID && existing.Slug == c.Slug {
			return store.ErrConflict
		}
	}
	r.st.categories[c.ID] = *c
	return nil
}

func (r *repo) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := r.st.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, m := range r.st.menuItems {
		if m.CategoryID == id {
			return store.ErrConflict
		}
	}
	delete(r.st.categories, id)
	return nil
}

func (r *repo) ListMenuItems(_ context.Context) ([]models.MenuItem, error) {
	out := make([]models.MenuItem, 0, len(r.st.menuItems))
	for _, m := range r.st.menuItems {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) GetMenuItem(_ context.Context, id int64) (models.MenuItem, error) {
	m, ok := r.st.menuItems[id]
	if !ok {
		return models.MenuItem{}, store.ErrNotFound
	}
	return m, nil
}

func (r *repo) InsertMenuItem(_ context.Context, item *models.MenuItem) error {
	if _, ok := r.st.categories[item.CategoryID]; !ok {
		return store.ErrConflict
	}
	item.ID = r.st.id("menu_items")
	r.st.menuItems[item.ID] = *item
	return nil
}

func (r *repo) UpdateMenuItem(_ context.Context, item *models.MenuItem) error {
	if _, ok := r.st.menuItems[item.ID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := r.st.categories[item.CategoryID]; !ok {
		return store.ErrConflict
	}
	r.st.menuItems[item.ID] = *item
	return nil
}

func (r *repo) DeleteMenuItem(_ context.Context, id int64) error {
	if _, ok := r.st.menuItems[id]; !ok {
		return store.ErrNotFound
	}
	for _, it := range r.st.orderItems {
		if it.MenuItemID == id {
			return store.ErrConflict
		}
	}
	for lineID, l := range r.st.cartLines {
		if l.MenuItemID == id {
			delete(r.st.cartLines, lineID)
		}
	}
	delete(r.st.menuItems, id)
	return nil
}

func (r *repo) ListCartLines(_ context.Context, userID int64) ([]models.CartLine, error) {
	var out []models.CartLine
	for _, l := range r.st.cartLines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) AddCartLine(_ context.Context, userID, menuItemID int64, quantity int, unitPrice decimal.Decimal) (models.CartLine, error) {
	if _, ok := r.st.users[userID]; !ok {
		return models.CartLine{}, store.ErrNotFound
	}
	if _, ok := r.st.menuItems[menuItemID]; !ok {
		return models.CartLine{}, store.ErrNotFound
	}

	for id, l := range r.st.cartLines {
		if l.UserID == userID && l.MenuItemID == menuItemID {
			if quantity > models.MaxCartQuantity-l.Quantity {
				return models.CartLine{}, store.ErrQuantityLimit
			}
			l.Quantity += quantity
			l.UnitPrice = unitPrice
			l.Price = models.LinePrice(l.Quantity, unitPrice)
			r.st.cartLines[id] = l
			return l, nil
		}
	}

	if quantity > models.MaxCartQuantity {
		return models.CartLine{}, store.ErrQuantityLimit
	}
	l := models.CartLine{
		ID:         r.st.id("cart_items"),
		UserID:     userID,
		MenuItemID: menuItemID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		Price:      models.LinePrice(quantity, unitPrice),
	}
	r.st.cartLines[l.ID] = l
	return l, nil
}

func (r *repo) ClearCart(_ context.Context, userID int64) (int64, error) {
	var n int64
	for id, l := range r.st.cartLines {
		if l.UserID == userID {
			delete(r.st.cartLines, id)
			n++
		}
	}
	return n, nil
}

func (r *repo) LockCart(_ context.Context, _ int64) error {
	return nil
}

func (r *repo) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.st.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.DeliveryAgentID != nil && (o.DeliveryAgentID == nil || *o.DeliveryAgentID != *filter.DeliveryAgentID) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) GetOrder(_ context.Context, id int64) (models.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *repo) InsertOrder(_ context.Context, order *models.Order) error {
	if err := r.checkOrderRefs(order); err != nil {
		return err
	}
	order.ID = r.st.id("orders")
	r.st.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *repo) UpdateOrder(_ context.Context, order *models.Order) error {
	if _, ok := r.st.orders[order.ID]; !ok {
		return store.ErrNotFound
	}
	if err := r.checkOrderRefs(order); err != nil {
		return err
	}
	r.st.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *repo) checkOrderRefs(order *models.Order) error {
	if _, ok := r.st.users[order.CustomerID]; !ok {
		return store.ErrConflict
	}
	if order.DeliveryAgentID != nil {
		if _, ok := r.st.users[*order.DeliveryAgentID]; !ok {
			return store.ErrConflict
		}
	}
	return nil
}

func (r *repo) DeleteOrder(_ context.Context, id int64) error {
	if _, ok := r.st.orders[id]; !ok {
		return store.ErrNotFound
	}
	for itemID, it := range r.st.orderItems {
		if it.OrderID == id {
			delete(r.st.orderItems, itemID)
		}
	}
	delete(r.st.orders, id)
	return nil
}

func (r *repo) InsertOrderItems(_ context.Context, orderID int64, items []models.OrderItem) ([]models.OrderItem, error) {
	if _, ok := r.st.orders[orderID]; !ok {
		return nil, store.ErrNotFound
	}
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		it.ID = r.st.id("order_items")
		it.OrderID = orderID
		r.st.orderItems[it.ID] = it
		out = append(out, it)
	}
	return out, nil
}

func (r *repo) ListOrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, it := range r.st.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) GetOrderItem(_ context.Context, id int64) (models.OrderItem, error) {
	it, ok := r.st.orderItems[id]
	if !ok {
		return models.OrderItem{}, store.ErrNotFound
	}
	return it, nil
}

func (r *repo) DeleteOrderItem(_ context.Context, id int64) error {
	if _, ok := r.st.orderItems[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.st.orderItems, id)
	return nil
}
