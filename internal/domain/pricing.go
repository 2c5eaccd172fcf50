package domain

import (
	"math"
	"strings"
	"time"
)

// DeliveryRules is the two-tier flat delivery fee keyed by district.
type DeliveryRules struct {
	LowChargeDistricts []string `json:"lowChargeDistricts" yaml:"low_charge_districts"`
	LowFee             float64  `json:"lowFee" yaml:"low_fee"`
	HighFee            float64  `json:"highFee" yaml:"high_fee"`
}

func DefaultDeliveryRules() DeliveryRules {
	return DeliveryRules{
		LowChargeDistricts: []string{"Dhaka", "Narayanganj", "Gazipur"},
		LowFee:             70,
		HighFee:            130,
	}
}

func (r DeliveryRules) IsLowCharge(district string) bool {
	d := strings.TrimSpace(district)
	for _, c := range r.LowChargeDistricts {
		if strings.EqualFold(c, d) {
			return true
		}
	}
	return false
}

func (r DeliveryRules) FeeFor(district string) float64 {
	if r.IsLowCharge(district) {
		return r.LowFee
	}
	return r.HighFee
}

// PriceLine is one priced cart or order line.
type PriceLine struct {
	UnitPrice     float64
	DiscountPrice *float64
	Quantity      int
}

func (l PriceLine) EffectiveUnitPrice() float64 {
	return EffectivePrice(l.UnitPrice, l.DiscountPrice)
}

// EffectivePrice is the discount price when present and lower than price.
func EffectivePrice(price float64, discount *float64) float64 {
	if discount != nil && *discount < price {
		return *discount
	}
	return price
}

type PriceBreakdown struct {
	Subtotal        float64       `json:"subtotal"`
	DeliveryFee     float64       `json:"deliveryFee"`
	VoucherCode     string        `json:"voucherCode,omitempty"`
	VoucherDiscount float64       `json:"voucherDiscount"`
	Total           float64       `json:"total"`
	QuoteRequest    bool          `json:"quoteRequest"`
	VoucherErr      *VoucherError `json:"-"`
}

// IsQuoteRequest reports whether every line is priced at 0.
func IsQuoteRequest(lines []PriceLine) bool {
	if len(lines) == 0 {
		return false
	}
	for _, l := range lines {
		if l.EffectiveUnitPrice() != 0 {
			return false
		}
	}
	return true
}

func Subtotal(lines []PriceLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.EffectiveUnitPrice() * float64(l.Quantity)
	}
	return RoundMoney(sum)
}

// CalculatePrice derives the order totals. A voucher that fails validation
// contributes no discount and is reported through VoucherErr.
func CalculatePrice(lines []PriceLine, district string, voucher *Voucher, rules DeliveryRules, now time.Time) PriceBreakdown {
	b := PriceBreakdown{
		Subtotal:     Subtotal(lines),
		QuoteRequest: IsQuoteRequest(lines),
	}
	if !b.QuoteRequest {
		b.DeliveryFee = rules.FeeFor(district)
	}
	if voucher != nil {
		b.VoucherCode = voucher.Code
		discount, err := voucher.Apply(b.Subtotal, now)
		if err != nil {
			b.VoucherErr = err
		} else {
			b.VoucherDiscount = discount
		}
	}
	b.Total = GrandTotal(b.Subtotal, b.DeliveryFee, b.VoucherDiscount)
	return b
}

// GrandTotal is subtotal + fee - discount, never negative.
func GrandTotal(subtotal, deliveryFee, discount float64) float64 {
	return math.Max(0, RoundMoney(subtotal+deliveryFee-discount))
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
