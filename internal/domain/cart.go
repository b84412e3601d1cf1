package domain

import "time"

type Cart struct {
	UserID    int64
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem references a product by ID. Duplicates are allowed: adding the
// same product twice produces two line items. Insertion order is display order.
type CartItem struct {
	ProductID string
	AddedAt   time.Time
}

// LineItem is the resolved read-only view of one cart entry.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}
