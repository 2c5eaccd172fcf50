package domain

import (
	"context"
	"time"
)

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type Product struct {
	ID            string    `json:"id"`
	TitleEn       string    `json:"titleEn"`
	TitleBn       string    `json:"titleBn"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	DiscountPrice *float64  `json:"discountPrice,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Product) Validate() error {
	if p.TitleEn == "" {
		return NewValidationError("titleEn", "title is required")
	}
	if p.Price < 0 {
		return NewValidationError("price", "price cannot be negative")
	}
	if p.DiscountPrice != nil && *p.DiscountPrice < 0 {
		return NewValidationError("discountPrice", "discount price cannot be negative")
	}
	return nil
}

type ProductRepository interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]Product, error)
	ListActive(ctx context.Context, limit, offset int) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
}

// CartItem is a line of the server-held cart, keyed by customer.
type CartItem struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	ProductID     string        `json:"productId"`
	Variant       string        `json:"variant,omitempty"`
	Quantity      int           `json:"quantity"`
	Customization Customization `json:"customization"`
	AddedAt       time.Time     `json:"addedAt"`
}

// Mergeable reports whether adding other can bump this line's quantity instead of
// adding a new line. Customized lines are always kept separate.
func (c CartItem) Mergeable(other CartItem) bool {
	return c.ProductID == other.ProductID && c.Variant == other.Variant &&
		c.Customization.IsZero() && other.Customization.IsZero()
}

type CartRepository interface {
	GetItems(ctx context.Context, userID string) ([]CartItem, error)
	AddItem(ctx context.Context, item *CartItem) error
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}
