package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/cache"
	"rizqara-backend/pkg/utils"
)

// dhaka is the storefront's business timezone. Date-only voucher end dates run
// to the end of that day here.
var dhaka = time.FixedZone("Asia/Dhaka", 6*60*60)

// VoucherUsecase handles voucher administration and side-effect free validation.
type VoucherUsecase struct {
	voucherRepo domain.VoucherRepository
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	cache       cache.CacheService
	now         func() time.Time
}

func NewVoucherUsecase(voucherRepo domain.VoucherRepository, cartRepo domain.CartRepository, productRepo domain.ProductRepository, c cache.CacheService) *VoucherUsecase {
	return &VoucherUsecase{
		voucherRepo: voucherRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cache:       c,
		now:         time.Now,
	}
}

// VoucherRequest is the admin input for create and update.
type VoucherRequest struct {
	Code          string  `json:"code"`
	Discount      float64 `json:"discount"`
	DescriptionEn string  `json:"descriptionEn"`
	DescriptionBn string  `json:"descriptionBn"`
	MinPurchase   float64 `json:"minPurchase"`
	MaxDiscount   float64 `json:"maxDiscount"`
	ValidUntil    string  `json:"validUntil"` // RFC3339 or YYYY-MM-DD
	IsActive      *bool   `json:"isActive"`
	UsageLimit    *int    `json:"usageLimit"`
}

func (req VoucherRequest) apply(v *domain.Voucher) error {
	until, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		return err
	}
	v.Code = domain.NormalizeVoucherCode(req.Code)
	v.Discount = req.Discount
	v.DescriptionEn = utils.SanitizeText(req.DescriptionEn)
	v.DescriptionBn = utils.SanitizeText(req.DescriptionBn)
	v.MinPurchase = req.MinPurchase
	v.MaxDiscount = req.MaxDiscount
	v.ValidUntil = until
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
	}
	v.UsageLimit = req.UsageLimit
	return v.Validate()
}

func (uc *VoucherUsecase) Create(ctx context.Context, req VoucherRequest) (*domain.Voucher, error) {
	now := uc.now()
	v := &domain.Voucher{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := req.apply(v); err != nil {
		return nil, err
	}
	if err := uc.voucherRepo.Create(ctx, v); err != nil {
		return nil, err
	}
	uc.invalidate()
	return v, nil
}

// List returns a page of vouchers, newest first.
func (uc *VoucherUsecase) List(ctx context.Context, limit, offset int) ([]domain.Voucher, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	vouchers, total, err := uc.voucherRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return vouchers, total, nil
}

func (uc *VoucherUsecase) Get(ctx context.Context, id string) (*domain.Voucher, error) {
	return uc.voucherRepo.GetByID(ctx, id)
}

// Update replaces the editable fields. usedCount is owned by checkout and is
// never written here.
func (uc *VoucherUsecase) Update(ctx context.Context, id string, req VoucherRequest) (*domain.Voucher, error) {
	v, err := uc.voucherRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(v); err != nil {
		return nil, err
	}
	v.UpdatedAt = uc.now()
	if err := uc.voucherRepo.Update(ctx, v); err != nil {
		return nil, err
	}
	uc.invalidate()
	return v, nil
}

func (uc *VoucherUsecase) Delete(ctx context.Context, id string) error {
	if err := uc.voucherRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.invalidate()
	return nil
}

type VoucherQuote struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
}

// Validate checks a code against a subtotal. It has no side effects and may be
// called on every keystroke.
func (uc *VoucherUsecase) Validate(ctx context.Context, code string, subtotal float64) (*VoucherQuote, error) {
	code = domain.NormalizeVoucherCode(code)
	if code == "" {
		return nil, domain.NewValidationError("code", "voucher code is required")
	}
	if subtotal < 0 {
		return nil, domain.NewValidationError("subtotal", "subtotal cannot be negative")
	}

	v, err := uc.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	discount, verr := v.Apply(domain.RoundMoney(subtotal), uc.now())
	if verr != nil {
		return nil, verr
	}
	return &VoucherQuote{Code: v.Code, Subtotal: domain.RoundMoney(subtotal), Discount: discount}, nil
}

// ValidateForCart validates a code against the customer's server-held cart.
func (uc *VoucherUsecase) ValidateForCart(ctx context.Context, userID, code string) (*VoucherQuote, error) {
	items, err := uc.cartRepo.GetItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.NewValidationError("cart", "cart is empty").WithCode(domain.ValidationEmptyCart)
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := uc.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.PriceLine, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		lines = append(lines, domain.PriceLine{UnitPrice: p.Price, DiscountPrice: p.DiscountPrice, Quantity: it.Quantity})
	}
	return uc.Validate(ctx, code, domain.Subtotal(lines))
}

// lookup reads through a short cache. Only the static fields matter for a
// preview; the authoritative usage check happens in the checkout transaction.
func (uc *VoucherUsecase) lookup(ctx context.Context, code string) (*domain.Voucher, error) {
	key := "voucher:" + code
	if uc.cache != nil {
		if v, ok := uc.cache.Get(key); ok {
			cached := v.(domain.Voucher)
			return &cached, nil
		}
	}
	v, err := uc.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.VoucherError{Kind: domain.VoucherNotFound, Code: code}
		}
		return nil, err
	}
	if uc.cache != nil {
		uc.cache.Set(key, *v, 30*time.Second)
	}
	return v, nil
}

func (uc *VoucherUsecase) invalidate() {
	if uc.cache != nil {
		uc.cache.DeletePrefix("voucher:")
	}
}

func parseValidUntil(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, domain.NewValidationError("validUntil", "an end date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", s, dhaka); err == nil {
		return d.Add(24*time.Hour - time.Nanosecond), nil
	}
	return time.Time{}, domain.NewValidationError("validUntil", "use RFC3339 or YYYY-MM-DD")
}
