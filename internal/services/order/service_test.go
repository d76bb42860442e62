package order

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"little-lemon/internal/apperror"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/store"
	"little-lemon/internal/store/memory"
)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e *models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	svc       *Service
	publisher *recordingPublisher

	customer  models.Principal
	customer2 models.Principal
	deliverer models.Principal
	other     models.Principal
	manager   models.Principal
	admin     models.Principal
	nobody    models.Principal

	itemA models.MenuItem
	itemB models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	pub := &recordingPublisher{}

	f := &fixture{
		ctx:       ctx,
		store:     st,
		publisher: pub,
		svc:       NewService(st, pub, logger.NewWithWriter("order-test", "error", io.Discard)),
		customer:  st.AddUser("c1", "tok-c1", false, models.RoleCustomer).Principal(),
		customer2: st.AddUser("c2", "tok-c2", false, models.RoleCustomer).Principal(),
		deliverer: st.AddUser("d1", "tok-d1", false, models.RoleDeliverer).Principal(),
		other:     st.AddUser("d2", "tok-d2", false, models.RoleDeliverer).Principal(),
		manager:   st.AddUser("m1", "tok-m1", false, models.RoleManager).Principal(),
		admin:     st.AddUser("root", "tok-root", true).Principal(),
		nobody:    st.AddUser("guest", "tok-guest", false).Principal(),
	}

	c := models.Category{Slug: "mains", Title: "Mains"}
	if err := st.InsertCategory(ctx, &c); err != nil {
		t.Fatalf("InsertCategory() error = %v", err)
	}
	f.itemA = models.MenuItem{Title: "Moussaka", Price: decimal.RequireFromString("5.00"), CategoryID: c.ID}
	f.itemB = models.MenuItem{Title: "Bruschetta", Price: decimal.RequireFromString("3.00"), CategoryID: c.ID}
	for _, item := range []*models.MenuItem{&f.itemA, &f.itemB} {
		if err := st.InsertMenuItem(ctx, item); err != nil {
			t.Fatalf("InsertMenuItem() error = %v", err)
		}
	}
	return f
}

func (f *fixture) addToCart(t *testing.T, p models.Principal, item models.MenuItem, qty int) {
	t.Helper()
	if _, err := f.store.AddCartLine(f.ctx, p.ID, item.ID, qty, item.Price); err != nil {
		t.Fatalf("AddCartLine() error = %v", err)
	}
}

// placeOrder checks out a one-item cart for p
func (f *fixture) placeOrder(t *testing.T, p models.Principal) models.Order {
	t.Helper()
	f.addToCart(t, p, f.itemA, 1)
	order, err := f.svc.CreateOrder(f.ctx, p)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	return order
}

func (f *fixture) assign(t *testing.T, orderID int64, agent models.Principal) {
	t.Helper()
	if _, err := f.svc.AssignDeliveryAgent(f.ctx, f.manager, orderID, agent.ID); err != nil {
		t.Fatalf("AssignDeliveryAgent() error = %v", err)
	}
}

func wantKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if got := apperror.KindOf(err); err == nil || got != kind {
		t.Fatalf("error = %v (kind %s), want kind %s", err, got, kind)
	}
}

func TestCreateOrderCheckout(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.customer, f.itemA, 2)
	f.addToCart(t, f.customer, f.itemB, 1)

	order, err := f.svc.CreateOrder(f.ctx, f.customer)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if !order.Total.Equal(decimal.RequireFromString("13.00")) {
		t.Errorf("Total = %s, want 13.00", order.Total)
	}
	if order.Status != models.StatusPlaced || order.CustomerID != f.customer.ID || order.DeliveryAgentID != nil {
		t.Errorf("order = %+v, want PLACED for customer with no agent", order)
	}
	if order.Date.IsZero() || time.Since(order.Date) > time.Minute {
		t.Errorf("Date = %v, want now", order.Date)
	}

	items, err := f.store.ListOrderItems(f.ctx, order.ID)
	if err != nil {
		t.Fatalf("ListOrderItems() error = %v", err)
	}
	if len(items) != 2 || items[0].Quantity != 2 || items[1].Quantity != 1 {
		t.Fatalf("items = %+v, want quantities 2 and 1", items)
	}
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price)
	}
	if !sum.Equal(order.Total) {
		t.Errorf("sum of item prices = %s, total = %s", sum, order.Total)
	}

	lines, _ := f.store.ListCartLines(f.ctx, f.customer.ID)
	if len(lines) != 0 {
		t.Errorf("cart has %d lines after checkout, want 0", len(lines))
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != models.EventOrderPlaced {
		t.Errorf("events = %v, want [order.placed]", got)
	}
}

func TestCreateOrderRequiresCustomer(t *testing.T) {
	f := newFixture(t)
	for _, p := range []models.Principal{f.deliverer, f.manager, f.admin, f.nobody} {
		_, err := f.svc.CreateOrder(f.ctx, p)
		wantKind(t, err, apperror.KindForbidden)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(f.ctx, f.customer)
	wantKind(t, err, apperror.KindValidation)

	orders, _ := f.store.ListOrders(f.ctx, models.OrderFilter{})
	if len(orders) != 0 {
		t.Errorf("orders = %d, want none", len(orders))
	}
	if len(f.publisher.types()) != 0 {
		t.Errorf("unexpected events %v", f.publisher.types())
	}
}

func TestCreateOrderOnlyTakesOwnCart(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.customer, f.itemA, 1)
	f.addToCart(t, f.customer2, f.itemB, 4)

	if _, err := f.svc.CreateOrder(f.ctx, f.customer); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	lines, _ := f.store.ListCartLines(f.ctx, f.customer2.ID)
	if len(lines) != 1 || lines[0].Quantity != 4 {
		t.Errorf("other customer's cart = %+v, want untouched", lines)
	}
}

func TestConcurrentCheckoutCreatesOneOrder(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.customer, f.itemA, 2)
	f.addToCart(t, f.customer, f.itemB, 1)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		errs = make(chan error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(f.ctx, f.customer)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.Is(err, apperror.KindValidation):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d checkouts succeeded, want exactly 1", succeeded)
	}

	orders, _ := f.store.ListOrders(f.ctx, models.OrderFilter{})
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	items, _ := f.store.ListOrderItems(f.ctx, orders[0].ID)
	if len(items) != 2 {
		t.Errorf("order items = %d, want 2", len(items))
	}
}

func TestCreateOrderPublishFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.addToCart(t, f.customer, f.itemA, 1)

	order, err := f.svc.CreateOrder(f.ctx, f.customer)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if _, err := f.store.GetOrder(f.ctx, order.ID); err != nil {
		t.Errorf("order missing after publish failure: %v", err)
	}
}

// failingItemsStore breaks InsertOrderItems inside transactions
type failingItemsStore struct {
	*memory.Store
}

func (s failingItemsStore) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	return s.Store.WithTx(ctx, func(tx store.Repository) error {
		return fn(failingItemsRepo{tx})
	})
}

type failingItemsRepo struct {
	store.Repository
}

func (failingItemsRepo) InsertOrderItems(context.Context, int64, []models.OrderItem) ([]models.OrderItem, error) {
	return nil, errors.New("disk full")
}

func TestCreateOrderFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, f.customer, f.itemA, 2)
	f.addToCart(t, f.customer, f.itemB, 1)
	svc := NewService(failingItemsStore{f.store}, f.publisher, logger.NewWithWriter("order-test", "error", io.Discard))

	if _, err := svc.CreateOrder(f.ctx, f.customer); err == nil {
		t.Fatal("CreateOrder() error = nil, want insert failure")
	}

	orders, err := f.store.ListOrders(f.ctx, models.OrderFilter{})
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("orders = %+v, want none after failed checkout", orders)
	}
	lines, _ := f.store.ListCartLines(f.ctx, f.customer.ID)
	if len(lines) != 2 {
		t.Errorf("cart lines = %d, want 2 kept after failed checkout", len(lines))
	}
	if got := f.publisher.types(); len(got) != 0 {
		t.Errorf("published %v, want nothing", got)
	}

	// The intact cart checks out once the store recovers
	order, err := f.svc.CreateOrder(f.ctx, f.customer)
	if err != nil {
		t.Fatalf("CreateOrder() retry error = %v", err)
	}
	if !order.Total.Equal(decimal.RequireFromString("13")) {
		t.Errorf("total = %s, want 13", order.Total)
	}
}

func TestCreateOrderTotalLimit(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.AddCartLine(f.ctx, f.customer.ID, f.itemA.ID, models.MaxCartQuantity, decimal.RequireFromString("100000")); err != nil {
		t.Fatalf("AddCartLine() error = %v", err)
	}

	_, err := f.svc.CreateOrder(f.ctx, f.customer)
	wantKind(t, err, apperror.KindValidation)
	if lines, _ := f.store.ListCartLines(f.ctx, f.customer.ID); len(lines) != 1 {
		t.Errorf("cart lines = %d, want cart kept", len(lines))
	}
}

func TestListOrdersVisibility(t *testing.T) {
	f := newFixture(t)
	mine := f.placeOrder(t, f.customer)
	theirs := f.placeOrder(t, f.customer2)
	f.assign(t, theirs.ID, f.deliverer)

	tests := []struct {
		name    string
		p       models.Principal
		wantIDs []int64
	}{
		{"customer sees own", f.customer, []int64{mine.ID}},
		{"other customer sees own", f.customer2, []int64{theirs.ID}},
		{"deliverer sees assigned", f.deliverer, []int64{theirs.ID}},
		{"unassigned deliverer sees none", f.other, nil},
		{"manager sees all", f.manager, []int64{mine.ID, theirs.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := f.svc.ListOrders(f.ctx, tt.p)
			if err != nil {
				t.Fatalf("ListOrders() error = %v", err)
			}
			if orders == nil {
				t.Fatal("ListOrders() returned nil slice")
			}
			if len(orders) != len(tt.wantIDs) {
				t.Fatalf("ListOrders() = %d orders, want %d", len(orders), len(tt.wantIDs))
			}
			for i, o := range orders {
				if o.ID != tt.wantIDs[i] {
					t.Errorf("orders[%d].ID = %d, want %d", i, o.ID, tt.wantIDs[i])
				}
			}
		})
	}

	t.Run("no role is forbidden", func(t *testing.T) {
		_, err := f.svc.ListOrders(f.ctx, f.nobody)
		wantKind(t, err, apperror.KindForbidden)
	})
	t.Run("staff account without role is forbidden", func(t *testing.T) {
		_, err := f.svc.ListOrders(f.ctx, f.admin)
		wantKind(t, err, apperror.KindForbidden)
	})
}

func TestListOrdersManagerPrecedence(t *testing.T) {
	f := newFixture(t)
	f.placeOrder(t, f.customer)
	f.placeOrder(t, f.customer2)

	both := f.store.AddUser("boss", "tok-boss", false, models.RoleCustomer, models.RoleManager).Principal()
	orders, err := f.svc.ListOrders(f.ctx, both)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("manager+customer sees %d orders, want all 2", len(orders))
	}
}

func TestAssignedDelivererScenario(t *testing.T) {
	f := newFixture(t)
	var order models.Order
	for i := 0; i < 7; i++ {
		order = f.placeOrder(t, f.customer)
	}
	if order.ID != 7 {
		t.Fatalf("order id = %d, want 7", order.ID)
	}

	confirmation, err := f.svc.AssignDeliveryAgent(f.ctx, f.manager, 7, f.deliverer.ID)
	if err != nil {
		t.Fatalf("AssignDeliveryAgent() error = %v", err)
	}
	if confirmation.OrderID != 7 || confirmation.AgentName != "d1" {
		t.Errorf("confirmation = %+v", confirmation)
	}

	d1Orders, _ := f.svc.ListOrders(f.ctx, f.deliverer)
	if len(d1Orders) != 1 || d1Orders[0].ID != 7 {
		t.Errorf("D1 orders = %+v, want order 7", d1Orders)
	}
	d2Orders, _ := f.svc.ListOrders(f.ctx, f.other)
	if len(d2Orders) != 0 {
		t.Errorf("D2 orders = %+v, want none", d2Orders)
	}
}

func TestAssignDeliveryAgent(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)

	tests := []struct {
		name    string
		p       models.Principal
		orderID int64
		agentID int64
		want    apperror.Kind
		wantOK  bool
	}{
		{name: "manager", p: f.manager, orderID: order.ID, agentID: f.deliverer.ID, wantOK: true},
		{name: "staff account", p: f.admin, orderID: order.ID, agentID: f.other.ID, wantOK: true},
		{name: "customer", p: f.customer, orderID: order.ID, agentID: f.deliverer.ID, want: apperror.KindForbidden},
		{name: "deliverer", p: f.deliverer, orderID: order.ID, agentID: f.deliverer.ID, want: apperror.KindForbidden},
		{name: "missing order", p: f.manager, orderID: 999, agentID: f.deliverer.ID, want: apperror.KindNotFound},
		{name: "missing agent", p: f.manager, orderID: order.ID, agentID: 999, want: apperror.KindNotFound},
		{name: "no agent", p: f.manager, orderID: order.ID, agentID: 0, want: apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.AssignDeliveryAgent(f.ctx, tt.p, tt.orderID, tt.agentID)
			if !tt.wantOK {
				wantKind(t, err, tt.want)
				return
			}
			if err != nil {
				t.Fatalf("AssignDeliveryAgent() error = %v", err)
			}
			stored, _ := f.store.GetOrder(f.ctx, tt.orderID)
			if stored.DeliveryAgentID == nil || *stored.DeliveryAgentID != tt.agentID {
				t.Errorf("stored agent = %v, want %d", stored.DeliveryAgentID, tt.agentID)
			}
			if got.Message == "" || got.Order.ID != tt.orderID {
				t.Errorf("confirmation = %+v", got)
			}
		})
	}
}

func statusPatch(s models.OrderStatus) models.OrderPatch {
	return models.OrderPatch{Status: &s}
}

func TestDelivererUpdate(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)
	f.assign(t, order.ID, f.deliverer)
	unassigned := f.placeOrder(t, f.customer)

	t.Run("order of another deliverer is not found", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.other, order.ID, statusPatch(models.StatusDelivered), false)
		wantKind(t, err, apperror.KindNotFound)
	})
	t.Run("unassigned order is not found", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.deliverer, unassigned.ID, statusPatch(models.StatusDelivered), false)
		wantKind(t, err, apperror.KindNotFound)
	})
	t.Run("missing order is not found", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.deliverer, 999, statusPatch(models.StatusDelivered), false)
		wantKind(t, err, apperror.KindNotFound)
	})
	t.Run("reassigning is forbidden", func(t *testing.T) {
		patch := models.OrderPatch{DeliveryAgentSet: true, DeliveryAgentID: &f.other.ID}
		_, err := f.svc.UpdateOrder(f.ctx, f.deliverer, order.ID, patch, false)
		wantKind(t, err, apperror.KindForbidden)
	})
	t.Run("status with another field is forbidden", func(t *testing.T) {
		patch := statusPatch(models.StatusDelivered)
		total := decimal.NewFromInt(1)
		patch.Total = &total
		_, err := f.svc.UpdateOrder(f.ctx, f.deliverer, order.ID, patch, false)
		wantKind(t, err, apperror.KindForbidden)

		stored, _ := f.store.GetOrder(f.ctx, order.ID)
		if stored.Status != models.StatusPlaced {
			t.Errorf("status changed to %s by rejected patch", stored.Status)
		}
	})
	t.Run("empty patch is invalid", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.deliverer, order.ID, models.OrderPatch{}, false)
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("status moves forward", func(t *testing.T) {
		got, err := f.svc.UpdateOrder(f.ctx, f.deliverer, order.ID, statusPatch(models.StatusOutForDelivery), false)
		if err != nil {
			t.Fatalf("UpdateOrder() error = %v", err)
		}
		if got.Status != models.StatusOutForDelivery {
			t.Errorf("Status = %s", got.Status)
		}
		if got.DeliveryAgentID == nil || *got.DeliveryAgentID != f.deliverer.ID {
			t.Errorf("agent changed by status update")
		}
	})
	t.Run("status cannot move back", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.deliverer, order.ID, statusPatch(models.StatusPlaced), false)
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("put with status only is accepted", func(t *testing.T) {
		got, err := f.svc.UpdateOrder(f.ctx, f.deliverer, order.ID, statusPatch(models.StatusDelivered), true)
		if err != nil {
			t.Fatalf("UpdateOrder() error = %v", err)
		}
		if got.Status != models.StatusDelivered || got.DeliveryAgentID == nil {
			t.Errorf("order = %+v", got)
		}
	})
}

func TestManagerUpdate(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)
	f.assign(t, order.ID, f.deliverer)

	date := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("99.95")
	delivered := models.StatusDelivered

	tests := []struct {
		name  string
		patch models.OrderPatch
		check func(t *testing.T, before, after models.Order)
	}{
		{
			name:  "status only",
			patch: models.OrderPatch{Status: &delivered},
			check: func(t *testing.T, before, after models.Order) {
				if after.Status != models.StatusDelivered {
					t.Errorf("Status = %s", after.Status)
				}
				if !after.Total.Equal(before.Total) || !after.Date.Equal(before.Date) || *after.DeliveryAgentID != *before.DeliveryAgentID {
					t.Errorf("unsupplied fields changed: %+v -> %+v", before, after)
				}
			},
		},
		{
			name:  "total and date",
			patch: models.OrderPatch{Total: &total, Date: &date},
			check: func(t *testing.T, before, after models.Order) {
				if !after.Total.Equal(total) || !after.Date.Equal(date) {
					t.Errorf("total/date = %s %v", after.Total, after.Date)
				}
				if after.Status != before.Status || after.DeliveryAgentID == nil {
					t.Errorf("unsupplied fields changed: %+v -> %+v", before, after)
				}
			},
		},
		{
			name:  "unassign",
			patch: models.OrderPatch{DeliveryAgentSet: true},
			check: func(t *testing.T, before, after models.Order) {
				if after.DeliveryAgentID != nil {
					t.Errorf("agent = %d, want nil", *after.DeliveryAgentID)
				}
				if after.Status != before.Status || !after.Total.Equal(before.Total) {
					t.Errorf("unsupplied fields changed")
				}
			},
		},
		{
			name:  "reassign",
			patch: models.OrderPatch{DeliveryAgentSet: true, DeliveryAgentID: &f.other.ID},
			check: func(t *testing.T, _, after models.Order) {
				if after.DeliveryAgentID == nil || *after.DeliveryAgentID != f.other.ID {
					t.Errorf("agent = %v, want %d", after.DeliveryAgentID, f.other.ID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := f.store.GetOrder(f.ctx, order.ID)
			if _, err := f.svc.UpdateOrder(f.ctx, f.manager, order.ID, tt.patch, false); err != nil {
				t.Fatalf("UpdateOrder() error = %v", err)
			}
			after, _ := f.store.GetOrder(f.ctx, order.ID)
			tt.check(t, before, after)
		})
	}
}

func TestManagerUpdateErrors(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)
	placed := models.StatusPlaced
	missing := int64(999)

	t.Run("missing order", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.manager, 999, statusPatch(models.StatusDelivered), false)
		wantKind(t, err, apperror.KindNotFound)
	})
	t.Run("empty patch", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.manager, order.ID, models.OrderPatch{}, false)
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("unknown agent", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.manager, order.ID, models.OrderPatch{DeliveryAgentSet: true, DeliveryAgentID: &missing}, false)
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("replace needs every required field", func(t *testing.T) {
		_, err := f.svc.UpdateOrder(f.ctx, f.manager, order.ID, models.OrderPatch{Status: &placed}, true)
		wantKind(t, err, apperror.KindValidation)
	})
}

func TestManagerReplace(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)
	f.assign(t, order.ID, f.deliverer)

	delivered := models.StatusDelivered
	total := decimal.RequireFromString("4.50")
	date := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

	got, err := f.svc.UpdateOrder(f.ctx, f.manager, order.ID, models.OrderPatch{Status: &delivered, Total: &total, Date: &date}, true)
	if err != nil {
		t.Fatalf("UpdateOrder() error = %v", err)
	}
	if got.DeliveryAgentID != nil {
		t.Errorf("replace without delivery_agent kept agent %d", *got.DeliveryAgentID)
	}
	if got.Status != delivered || !got.Total.Equal(total) || !got.Date.Equal(date) || got.CustomerID != f.customer.ID {
		t.Errorf("order = %+v", got)
	}
	// Managers may move status backwards
	if _, err := f.svc.UpdateOrder(f.ctx, f.manager, order.ID, statusPatch(models.StatusPlaced), false); err != nil {
		t.Errorf("manager status override error = %v", err)
	}
}

func TestUpdateOrderForbiddenRoles(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)

	for _, p := range []models.Principal{f.customer, f.customer2, f.nobody, f.admin} {
		_, err := f.svc.UpdateOrder(f.ctx, p, order.ID, statusPatch(models.StatusDelivered), false)
		wantKind(t, err, apperror.KindForbidden)
	}
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.customer)

	wantKind(t, f.svc.DeleteOrder(f.ctx, f.customer, order.ID), apperror.KindForbidden)
	wantKind(t, f.svc.DeleteOrder(f.ctx, f.manager, 999), apperror.KindNotFound)

	if err := f.svc.DeleteOrder(f.ctx, f.manager, order.ID); err != nil {
		t.Fatalf("DeleteOrder() error = %v", err)
	}
	items, _ := f.store.ListOrderItems(f.ctx, order.ID)
	if len(items) != 0 {
		t.Errorf("items survived order deletion: %+v", items)
	}
	got := f.publisher.types()
	if got[len(got)-1] != models.EventOrderDeleted {
		t.Errorf("last event = %s, want order.deleted", got[len(got)-1])
	}
}
