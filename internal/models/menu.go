package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"little-lemon/internal/apperror"
)

// MinMenuPrice is the lowest price a menu item may carry
var MinMenuPrice = decimal.NewFromInt(2)

// Category groups menu items
type Category struct {
	ID    int64  `json:"id" db:"id"`
	Slug  string `json:"slug" db:"slug"`
	Title string `json:"title" db:"title"`
}

// MenuItem is a purchasable dish
type MenuItem struct {
	ID         int64           `json:"id" db:"id"`
	Title      string          `json:"title" db:"title"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Featured   bool            `json:"featured" db:"featured"`
	CategoryID int64           `json:"category" db:"category_id"`
}

// MenuItemRequest is the body of a menu item create or update
type MenuItemRequest struct {
	Title      *string          `json:"title"`
	Price      *decimal.Decimal `json:"price"`
	Featured   *bool            `json:"featured"`
	CategoryID *int64           `json:"category"`
}

// Validate checks a request. With partial set, absent fields are allowed.
func (req *MenuItemRequest) Validate(partial bool) error {
	fields := map[string]string{}

	if req.Title == nil {
		if !partial {
			fields["title"] = "this field is required"
		}
	} else if t := strings.TrimSpace(*req.Title); t == "" {
		fields["title"] = "this field may not be blank"
	} else if len(t) > 255 {
		fields["title"] = "must not exceed 255 characters"
	}

	if req.Price == nil {
		if !partial {
			fields["price"] = "this field is required"
		}
	} else if req.Price.LessThan(MinMenuPrice) {
		fields["price"] = "ensure this value is greater than or equal to 2"
	} else if req.Price.GreaterThanOrEqual(MaxMenuPrice) {
		fields["price"] = "ensure this value is less than " + MaxMenuPrice.String()
	} else if !WholeCents(*req.Price) {
		fields["price"] = "ensure that there are no more than 2 decimal places"
	}

	if req.CategoryID == nil {
		if !partial {
			fields["category"] = "this field is required"
		}
	} else if *req.CategoryID <= 0 {
		fields["category"] = "invalid category id"
	}

	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// Apply copies the present fields onto item
func (req *MenuItemRequest) Apply(item *MenuItem) {
	if req.Title != nil {
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.Featured != nil {
		item.Featured = *req.Featured
	}
	if req.CategoryID != nil {
		item.CategoryID = *req.CategoryID
	}
}

// CategoryRequest is the body of a category create or update
type CategoryRequest struct {
	Slug  *string `json:"slug"`
	Title *string `json:"title"`
}

// Validate checks a request. With partial set, absent fields are allowed.
func (req *CategoryRequest) Validate(partial bool) error {
	fields := map[string]string{}

	if req.Title == nil {
		if !partial {
			fields["title"] = "this field is required"
		}
	} else if t := strings.TrimSpace(*req.Title); t == "" {
		fields["title"] = "this field may not be blank"
	} else if len(t) > 255 {
		fields["title"] = "must not exceed 255 characters"
	}

	if req.Slug == nil {
		if !partial {
			fields["slug"] = "this field is required"
		}
	} else if slug := strings.TrimSpace(*req.Slug); slug == "" {
		fields["slug"] = "this field may not be blank"
	} else if strings.ContainsAny(slug, " /") {
		fields["slug"] = "must not contain spaces or slashes"
	} else if len(slug) > 255 {
		fields["slug"] = "must not exceed 255 characters"
	}

	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// Apply copies the present fields onto c
func (req *CategoryRequest) Apply(c *Category) {
	if req.Slug != nil {
		c.Slug = strings.TrimSpace(*req.Slug)
	}
	if req.Title != nil {
		c.Title = strings.TrimSpace(*req.Title)
	}
}
