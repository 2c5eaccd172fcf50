package domain

import (
	"context"
	"math"
	"strings"
	"time"
)

type Voucher struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Discount      float64   `json:"discount"` // percentage
	DescriptionEn string    `json:"descriptionEn"`
	DescriptionBn string    `json:"descriptionBn"`
	MinPurchase   float64   `json:"minPurchase"`
	MaxDiscount   float64   `json:"maxDiscount"`
	ValidUntil    time.Time `json:"validUntil"`
	IsActive      bool      `json:"isActive"`
	UsageLimit    *int      `json:"usageLimit,omitempty"`
	UsedCount     int       `json:"usedCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NormalizeVoucherCode makes lookups case-insensitive. Codes are stored uppercase.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (v *Voucher) limitReached() bool {
	return v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit
}

// DiscountFor is min(subtotal * pct / 100, maxDiscount).
func (v *Voucher) DiscountFor(subtotal float64) float64 {
	d := subtotal * v.Discount / 100
	if v.MaxDiscount > 0 {
		d = math.Min(d, v.MaxDiscount)
	}
	return RoundMoney(math.Max(0, d))
}

// Apply validates the voucher against subtotal and returns the discount. It has
// no side effects; usage is only counted when an order is created.
func (v *Voucher) Apply(subtotal float64, now time.Time) (float64, *VoucherError) {
	if err := v.Check(now); err != nil {
		return 0, err
	}
	if subtotal < v.MinPurchase {
		return 0, &VoucherError{Kind: VoucherBelowMinimumPurchase, Code: v.Code, MinPurchase: v.MinPurchase}
	}
	return v.DiscountFor(subtotal), nil
}

// Check covers the subtotal-independent conditions.
func (v *Voucher) Check(now time.Time) *VoucherError {
	switch {
	case !v.IsActive:
		return &VoucherError{Kind: VoucherInactive, Code: v.Code}
	case now.After(v.ValidUntil):
		return &VoucherError{Kind: VoucherExpired, Code: v.Code}
	case v.limitReached():
		return &VoucherError{Kind: VoucherUsageLimitReached, Code: v.Code}
	}
	return nil
}

// Validate checks admin input before a voucher is stored.
func (v *Voucher) Validate() error {
	v.Code = NormalizeVoucherCode(v.Code)
	if v.Code == "" {
		return NewValidationError("code", "code is required")
	}
	if v.Discount <= 0 || v.Discount > 100 {
		return NewValidationError("discount", "discount must be between 0 and 100 percent")
	}
	if v.MinPurchase < 0 {
		return NewValidationError("minPurchase", "minimum purchase cannot be negative")
	}
	if v.MaxDiscount <= 0 {
		return NewValidationError("maxDiscount", "maximum discount must be positive")
	}
	if v.ValidUntil.IsZero() {
		return NewValidationError("validUntil", "an end date is required")
	}
	if v.UsageLimit != nil && *v.UsageLimit <= 0 {
		return NewValidationError("usageLimit", "usage limit must be positive")
	}
	if v.UsedCount < 0 {
		return NewValidationError("usedCount", "used count cannot be negative")
	}
	return nil
}

type VoucherRepository interface {
	Create(ctx context.Context, v *Voucher) error
	GetByID(ctx context.Context, id string) (*Voucher, error)
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	List(ctx context.Context, limit, offset int) ([]Voucher, int64, error)
	Update(ctx context.Context, v *Voucher) error
	Delete(ctx context.Context, id string) error
	// IncrementUsage atomically counts one redemption. It returns a VoucherError
	// when the voucher is no longer redeemable at the moment of the write.
	IncrementUsage(ctx context.Context, code string, now time.Time) error
}
