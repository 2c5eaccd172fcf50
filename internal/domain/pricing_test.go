package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRules() DeliveryRules {
	return DeliveryRules{LowChargeDistricts: []string{"Dhaka", "Narayanganj", "Gazipur"}, LowFee: 60, HighFee: 120}
}

func ptr[T any](v T) *T { return &v }

func save10(minPurchase float64) *Voucher {
	return &Voucher{
		Code:        "SAVE10",
		Discount:    10,
		MinPurchase: minPurchase,
		MaxDiscount: 200,
		ValidUntil:  testNow.Add(24 * time.Hour),
		IsActive:    true,
	}
}

func TestCalculatePrice_VoucherApplied(t *testing.T) {
	lines := []PriceLine{{UnitPrice: 500, Quantity: 2}}

	b := CalculatePrice(lines, "Dhaka", save10(500), testRules(), testNow)

	require.Nil(t, b.VoucherErr)
	assert.Equal(t, 1000.0, b.Subtotal)
	assert.Equal(t, 60.0, b.DeliveryFee)
	assert.Equal(t, 100.0, b.VoucherDiscount)
	assert.Equal(t, 960.0, b.Total)
}

func TestCalculatePrice_BelowMinimumPurchase(t *testing.T) {
	lines := []PriceLine{{UnitPrice: 500, Quantity: 2}}

	b := CalculatePrice(lines, "Dhaka", save10(1500), testRules(), testNow)

	require.NotNil(t, b.VoucherErr)
	assert.Equal(t, VoucherBelowMinimumPurchase, b.VoucherErr.Kind)
	assert.Equal(t, 0.0, b.VoucherDiscount)
	assert.Equal(t, 1060.0, b.Total)
}

func TestCalculatePrice_DiscountCapped(t *testing.T) {
	lines := []PriceLine{{UnitPrice: 5000, Quantity: 1}}

	b := CalculatePrice(lines, "Sylhet", save10(0), testRules(), testNow)

	assert.Equal(t, 200.0, b.VoucherDiscount)
	assert.Equal(t, 120.0, b.DeliveryFee)
	assert.Equal(t, 4920.0, b.Total)
}

func TestCalculatePrice_EffectivePrice(t *testing.T) {
	lines := []PriceLine{
		{UnitPrice: 400, DiscountPrice: ptr(350.0), Quantity: 2},
		{UnitPrice: 300, DiscountPrice: ptr(320.0), Quantity: 1}, // higher discount price is ignored
	}

	b := CalculatePrice(lines, " dhaka ", nil, testRules(), testNow)

	assert.Equal(t, 1000.0, b.Subtotal)
	assert.Equal(t, 60.0, b.DeliveryFee)
	assert.Equal(t, 1060.0, b.Total)
}

func TestCalculatePrice_QuoteRequestHasNoDeliveryFee(t *testing.T) {
	lines := []PriceLine{{UnitPrice: 0, Quantity: 1}, {UnitPrice: 200, DiscountPrice: ptr(0.0), Quantity: 3}}

	b := CalculatePrice(lines, "Rangpur", nil, testRules(), testNow)

	assert.True(t, b.QuoteRequest)
	assert.Equal(t, 0.0, b.DeliveryFee)
	assert.Equal(t, 0.0, b.Total)
}

func TestCalculatePrice_TotalIdentity(t *testing.T) {
	carts := [][]PriceLine{
		{{UnitPrice: 1, Quantity: 1}},
		{{UnitPrice: 199.99, Quantity: 3}, {UnitPrice: 50, DiscountPrice: ptr(45.5), Quantity: 7}},
		{{UnitPrice: 0, Quantity: 2}},
		{{UnitPrice: 12000, Quantity: 1}},
	}
	vouchers := []*Voucher{nil, save10(0), save10(100000), {Code: "ALL", Discount: 100, MaxDiscount: 1e9, ValidUntil: testNow, IsActive: true}}
	districts := []string{"Dhaka", "Khulna"}

	for _, lines := range carts {
		for _, v := range vouchers {
			for _, d := range districts {
				b := CalculatePrice(lines, d, v, testRules(), testNow)
				assert.GreaterOrEqual(t, b.Total, 0.0)
				assert.InDelta(t, b.Subtotal+b.DeliveryFee-b.VoucherDiscount, b.Total, 0.001)
				if b.QuoteRequest {
					assert.Equal(t, 0.0, b.DeliveryFee)
				}
			}
		}
	}
}

func TestGrandTotal_ClampsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, GrandTotal(100, 0, 250))
}
