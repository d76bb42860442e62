package cart

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"little-lemon/internal/apperror"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/store"
	"little-lemon/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, models.MenuItem) {
	t.Helper()
	st := memory.New()
	c := models.Category{Slug: "starters", Title: "Starters"}
	if err := st.InsertCategory(context.Background(), &c); err != nil {
		t.Fatalf("InsertCategory() error = %v", err)
	}
	item := models.MenuItem{Title: "Hummus", Price: decimal.RequireFromString("4.25"), CategoryID: c.ID}
	if err := st.InsertMenuItem(context.Background(), &item); err != nil {
		t.Fatalf("InsertMenuItem() error = %v", err)
	}
	return NewService(st, logger.NewWithWriter("cart-test", "error", io.Discard)), st, item
}

func TestCartRequiresCustomer(t *testing.T) {
	svc, st, item := newTestService(t)
	ctx := context.Background()

	for _, p := range []models.Principal{
		st.AddUser("d", "t-d", false, models.RoleDeliverer).Principal(),
		st.AddUser("m", "t-m", false, models.RoleManager).Principal(),
		st.AddUser("n", "t-n", true).Principal(),
	} {
		if _, err := svc.List(ctx, p); !apperror.Is(err, apperror.KindForbidden) {
			t.Errorf("List(%s) error = %v, want forbidden", p.Username, err)
		}
		if _, err := svc.Add(ctx, p, models.AddToCartRequest{MenuItemID: item.ID, Quantity: 1}); !apperror.Is(err, apperror.KindForbidden) {
			t.Errorf("Add(%s) error = %v, want forbidden", p.Username, err)
		}
		if _, err := svc.Clear(ctx, p); !apperror.Is(err, apperror.KindForbidden) {
			t.Errorf("Clear(%s) error = %v, want forbidden", p.Username, err)
		}
	}
}

func TestAddToCart(t *testing.T) {
	svc, st, item := newTestService(t)
	ctx := context.Background()
	customer := st.AddUser("c", "t-c", false, models.RoleCustomer).Principal()

	tests := []struct {
		name      string
		req       models.AddToCartRequest
		wantField string
	}{
		{name: "zero quantity", req: models.AddToCartRequest{MenuItemID: item.ID, Quantity: 0}, wantField: "quantity"},
		{name: "negative quantity", req: models.AddToCartRequest{MenuItemID: item.ID, Quantity: -2}, wantField: "quantity"},
		{name: "missing item", req: models.AddToCartRequest{Quantity: 1}, wantField: "menu_item"},
		{name: "unknown item", req: models.AddToCartRequest{MenuItemID: 404, Quantity: 1}, wantField: "menu_item"},
		{name: "quantity over limit", req: models.AddToCartRequest{MenuItemID: item.ID, Quantity: models.MaxCartQuantity + 1}, wantField: "quantity"},
		{name: "overflowing quantity", req: models.AddToCartRequest{MenuItemID: item.ID, Quantity: math.MaxInt}, wantField: "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, customer, tt.req)
			if !apperror.Is(err, apperror.KindValidation) {
				t.Fatalf("Add() error = %v, want validation error", err)
			}
			if _, ok := err.(*apperror.Error).Fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want %q", err.(*apperror.Error).Fields, tt.wantField)
			}
		})
	}

	line, err := svc.Add(ctx, customer, models.AddToCartRequest{MenuItemID: item.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !line.UnitPrice.Equal(item.Price) || !line.Price.Equal(decimal.RequireFromString("8.50")) {
		t.Errorf("line = %+v, want unit 4.25 and price 8.50", line)
	}

	// A later add picks up the current catalog price
	item.Price = decimal.RequireFromString("5.00")
	if err := st.UpdateMenuItem(ctx, &item); err != nil {
		t.Fatalf("UpdateMenuItem() error = %v", err)
	}
	line, err = svc.Add(ctx, customer, models.AddToCartRequest{MenuItemID: item.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if line.Quantity != 3 || !line.Price.Equal(decimal.RequireFromString("15")) {
		t.Errorf("merged line = %+v, want quantity 3 priced 15", line)
	}
}

func TestListAndClearCart(t *testing.T) {
	svc, st, item := newTestService(t)
	ctx := context.Background()
	alice := st.AddUser("alice", "t-a", false, models.RoleCustomer).Principal()
	bob := st.AddUser("bob", "t-b", false, models.RoleCustomer).Principal()

	if _, err := svc.Add(ctx, alice, models.AddToCartRequest{MenuItemID: item.ID, Quantity: 1}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	lines, err := svc.List(ctx, bob)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if lines == nil || len(lines) != 0 {
		t.Errorf("bob sees %v, want empty non-nil list", lines)
	}

	n, err := svc.Clear(ctx, alice)
	if err != nil || n != 1 {
		t.Fatalf("Clear() = %d, %v; want 1, nil", n, err)
	}
	n, err = svc.Clear(ctx, alice)
	if err != nil || n != 0 {
		t.Errorf("second Clear() = %d, %v; want 0, nil", n, err)
	}
}

func TestAddToCartMergeLimit(t *testing.T) {
	svc, st, item := newTestService(t)
	ctx := context.Background()
	customer := st.AddUser("c", "t-c", false, models.RoleCustomer).Principal()

	if _, err := svc.Add(ctx, customer, models.AddToCartRequest{MenuItemID: item.ID, Quantity: models.MaxCartQuantity}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	_, err := svc.Add(ctx, customer, models.AddToCartRequest{MenuItemID: item.ID, Quantity: 1})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("Add() past the limit error = %v, want validation error", err)
	}
	if _, ok := err.(*apperror.Error).Fields["quantity"]; !ok {
		t.Errorf("fields = %v, want quantity", err.(*apperror.Error).Fields)
	}

	lines, err := svc.List(ctx, customer)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != models.MaxCartQuantity {
		t.Errorf("lines = %+v, want one line of %d", lines, models.MaxCartQuantity)
	}
	want := models.LinePrice(models.MaxCartQuantity, item.Price)
	if !lines[0].Price.Equal(want) || lines[0].Price.IsNegative() {
		t.Errorf("line price = %s, want %s", lines[0].Price, want)
	}
}

// lockingStore records LockCart calls made inside transactions
type lockingStore struct {
	*memory.Store
	locked []int64
}

func (s *lockingStore) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	return s.Store.WithTx(ctx, func(tx store.Repository) error {
		return fn(&lockingRepo{Repository: tx, parent: s})
	})
}

type lockingRepo struct {
	store.Repository
	parent *lockingStore
}

func (r *lockingRepo) LockCart(ctx context.Context, userID int64) error {
	r.parent.locked = append(r.parent.locked, userID)
	return r.Repository.LockCart(ctx, userID)
}

func (r *lockingRepo) AddCartLine(ctx context.Context, userID, menuItemID int64, quantity int, unitPrice decimal.Decimal) (models.CartLine, error) {
	if len(r.parent.locked) == 0 {
		return models.CartLine{}, errors.New("cart line added before the cart was locked")
	}
	return r.Repository.AddCartLine(ctx, userID, menuItemID, quantity, unitPrice)
}

func TestAddToCartLocksCart(t *testing.T) {
	_, mem, item := newTestService(t)
	st := &lockingStore{Store: mem}
	svc := NewService(st, logger.NewWithWriter("cart-test", "error", io.Discard))
	customer := mem.AddUser("c", "t-c", false, models.RoleCustomer).Principal()

	if _, err := svc.Add(context.Background(), customer, models.AddToCartRequest{MenuItemID: item.ID, Quantity: 1}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(st.locked) != 1 || st.locked[0] != customer.ID {
		t.Errorf("locked carts = %v, want [%d]", st.locked, customer.ID)
	}
}
