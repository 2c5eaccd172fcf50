package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"rizqara-backend/internal/domain"
)

const defaultMaxLineQuantity = 99

type CartUsecase struct {
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	maxQuantity int
	now         func() time.Time
}

// NewCartUsecase caps each cart line at maxQuantity units (99 when zero).
func NewCartUsecase(cartRepo domain.CartRepository, productRepo domain.ProductRepository, maxQuantity int) *CartUsecase {
	if maxQuantity <= 0 {
		maxQuantity = defaultMaxLineQuantity
	}
	return &CartUsecase{cartRepo: cartRepo, productRepo: productRepo, maxQuantity: maxQuantity, now: time.Now}
}

type CartLine struct {
	domain.CartItem
	Product   *domain.Product `json:"product,omitempty"`
	Available bool            `json:"available"`
	LineTotal float64         `json:"lineTotal"`
}

type CartView struct {
	Items        []CartLine `json:"items"`
	Subtotal     float64    `json:"subtotal"`
	QuoteRequest bool       `json:"quoteRequest"`
}

type AddCartItemRequest struct {
	ProductID     string               `json:"productId"`
	Variant       string               `json:"variant,omitempty"`
	Quantity      int                  `json:"quantity"`
	Customization domain.Customization `json:"customization"`
}

func (uc *CartUsecase) GetMyCart(ctx context.Context, userID string) (*CartView, error) {
	items, err := uc.cartRepo.GetItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products := map[string]domain.Product{}
	if len(ids) > 0 {
		if products, err = uc.productRepo.GetByIDs(ctx, ids); err != nil {
			return nil, err
		}
	}

	view := &CartView{Items: make([]CartLine, 0, len(items))}
	var lines []domain.PriceLine
	for _, it := range items {
		line := CartLine{CartItem: it}
		if p, ok := products[it.ProductID]; ok {
			line.Product = &p
			line.Available = p.IsActive
			if p.IsActive {
				pl := domain.PriceLine{UnitPrice: p.Price, DiscountPrice: p.DiscountPrice, Quantity: it.Quantity}
				line.LineTotal = domain.RoundMoney(pl.EffectiveUnitPrice() * float64(it.Quantity))
				lines = append(lines, pl)
			}
		}
		view.Items = append(view.Items, line)
	}
	view.Subtotal = domain.Subtotal(lines)
	view.QuoteRequest = domain.IsQuoteRequest(lines)
	return view, nil
}

// AddToCart merges plain lines of the same product and variant. Customized
// lines are always kept separate.
func (uc *CartUsecase) AddToCart(ctx context.Context, userID string, req AddCartItemRequest) (*CartView, error) {
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.Quantity > uc.maxQuantity {
		return nil, domain.NewValidationError("quantity", "quantity is too large")
	}
	products, err := uc.productRepo.GetByIDs(ctx, []string{req.ProductID})
	if err != nil {
		return nil, err
	}
	p, ok := products[req.ProductID]
	if !ok || !p.IsActive {
		return nil, domain.NewValidationError("productId", "product is not available")
	}
	custom := sanitizeCustomization(req.Customization)
	if err := custom.Validate(); err != nil {
		return nil, err
	}

	item := domain.CartItem{
		ID:            uuid.NewString(),
		UserID:        userID,
		ProductID:     p.ID,
		Variant:       strings.TrimSpace(req.Variant),
		Quantity:      req.Quantity,
		Customization: custom,
		AddedAt:       uc.now(),
	}

	existing, err := uc.cartRepo.GetItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Mergeable(item) {
			qty := e.Quantity + item.Quantity
			if qty > uc.maxQuantity {
				return nil, domain.NewValidationError("quantity", "quantity is too large")
			}
			if err := uc.cartRepo.UpdateQuantity(ctx, userID, e.ID, qty); err != nil {
				return nil, err
			}
			return uc.GetMyCart(ctx, userID)
		}
	}

	if err := uc.cartRepo.AddItem(ctx, &item); err != nil {
		return nil, err
	}
	return uc.GetMyCart(ctx, userID)
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (uc *CartUsecase) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return uc.RemoveFromCart(ctx, userID, itemID)
	}
	if quantity > uc.maxQuantity {
		return nil, domain.NewValidationError("quantity", "quantity is too large")
	}
	if err := uc.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, err
	}
	return uc.GetMyCart(ctx, userID)
}

func (uc *CartUsecase) RemoveFromCart(ctx context.Context, userID, itemID string) (*CartView, error) {
	if err := uc.cartRepo.RemoveItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return uc.GetMyCart(ctx, userID)
}
