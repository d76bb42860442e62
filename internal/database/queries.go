package database

// User queries
const (
	userColumns = `
		SELECT u.id, u.username, COALESCE(u.token, ''), u.is_staff,
			   COALESCE(array_agg(g.group_name ORDER BY g.group_name) FILTER (WHERE g.group_name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_groups g ON g.user_id = u.id`

	GetUserByIDSQL = userColumns + `
		WHERE u.id = $1
		GROUP BY u.id`

	GetUserByTokenSQL = userColumns + `
		WHERE u.token = $1
		GROUP BY u.id`

	LockUserSQL = `SELECT id FROM users WHERE id = $1 FOR UPDATE`
)

// Catalog queries
const (
	ListCategoriesSQL = `SELECT id, slug, title FROM categories ORDER BY id`

	GetCategorySQL = `SELECT id, slug, title FROM categories WHERE id = $1`

	InsertCategorySQL = `
		INSERT INTO categories (slug, title)
		VALUES ($1, $2)
		RETURNING id`

	UpdateCategorySQL = `UPDATE categories SET slug = $2, title = $3 WHERE id = $1`

	DeleteCategorySQL = `DELETE FROM categories WHERE id = $1`

	ListMenuItemsSQL = `
		SELECT id, title, price::text, featured, category_id
		FROM menu_items
		ORDER BY id`

	GetMenuItemSQL = `
		SELECT id, title, price::text, featured, category_id
		FROM menu_items WHERE id = $1`

	InsertMenuItemSQL = `
		INSERT INTO menu_items (title, price, featured, category_id)
		VALUES ($1, $2::text::numeric, $3, $4)
		RETURNING id`

	UpdateMenuItemSQL = `
		UPDATE menu_items SET title = $2, price = $3::text::numeric, featured = $4, category_id = $5
		WHERE id = $1`

	DeleteMenuItemSQL = `DELETE FROM menu_items WHERE id = $1`
)

// Cart queries
const (
	ListCartLinesSQL = `
		SELECT id, user_id, menu_item_id, quantity, unit_price::text, price::text
		FROM cart_items
		WHERE user_id = $1
		ORDER BY id`

	UpsertCartLineSQL = `
		INSERT INTO cart_items (user_id, menu_item_id, quantity, unit_price, price)
		VALUES ($1, $2, $3, $4::text::numeric, $4::text::numeric * $3::integer)
		ON CONFLICT (user_id, menu_item_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price,
			price = EXCLUDED.unit_price * (cart_items.quantity + EXCLUDED.quantity)
		WHERE cart_items.quantity + EXCLUDED.quantity <= $5
		RETURNING id, user_id, menu_item_id, quantity, unit_price::text, price::text`

	ClearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

// Order queries
const (
	orderColumns = `SELECT id, user_id, delivery_crew_id, status, total::text, date FROM orders`

	ListOrdersSQL = orderColumns + `
		WHERE ($1::bigint IS NULL OR user_id = $1)
		  AND ($2::bigint IS NULL OR delivery_crew_id = $2)
		ORDER BY id`

	GetOrderSQL = orderColumns + ` WHERE id = $1`

	InsertOrderSQL = `
		INSERT INTO orders (user_id, delivery_crew_id, status, total, date)
		VALUES ($1, $2, $3, $4::text::numeric, $5)
		RETURNING id`

	UpdateOrderSQL = `
		UPDATE orders SET delivery_crew_id = $2, status = $3, total = $4::text::numeric, date = $5
		WHERE id = $1`

	DeleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, price)
		VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric)
		RETURNING id`

	ListOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, quantity, unit_price::text, price::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	GetOrderItemSQL = `
		SELECT id, order_id, menu_item_id, quantity, unit_price::text, price::text
		FROM order_items WHERE id = $1`

	DeleteOrderItemSQL = `DELETE FROM order_items WHERE id = $1`
)
