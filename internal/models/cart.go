package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"little-lemon/internal/apperror"
)

// CartLine is one menu item in a customer's uncommitted cart
type CartLine struct {
	ID         int64           `json:"id" db:"id"`
	UserID     int64           `json:"user" db:"user_id"`
	MenuItemID int64           `json:"menuitem" db:"menu_item_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Price      decimal.Decimal `json:"price" db:"price"`
}

// MaxCartQuantity bounds the quantity of one cart line, including merged adds.
const MaxCartQuantity = 1000

// AddToCartRequest is the body of POST /api/cart/menu-items
type AddToCartRequest struct {
	MenuItemID int64 `json:"menu_item"`
	Quantity   int   `json:"quantity"`
}

func (req *AddToCartRequest) Validate() error {
	fields := map[string]string{}
	if req.MenuItemID <= 0 {
		fields["menu_item"] = "this field is required"
	}
	if req.Quantity <= 0 {
		fields["quantity"] = "must be greater than 0"
	} else if req.Quantity > MaxCartQuantity {
		fields["quantity"] = fmt.Sprintf("must not exceed %d", MaxCartQuantity)
	}
	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// LinePrice returns quantity × unit price
func LinePrice(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartTotal sums the line prices of lines
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price)
	}
	return total
}
