package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rizqara-backend/internal/domain"
)

const bkashSMS = "You have received Tk 1,060.00 from 01711000000. Fee Tk 0.00. Balance Tk 5,210.50. TrxID 9AB3XK2P at 01/03/2026 18:04"

func TestParsePaymentSMS(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		ok     bool
		trxID  string
		amount float64
	}{
		{"bkash", bkashSMS, true, "9AB3XK2P", 1060},
		{"nagad", "Money Received. Amount: Tk 750.00 Sender: 01811000000 TxnID: 71ab9cde Balance: Tk 900.00", true, "71AB9CDE", 750},
		{"rocket without amount", "TxnId: RKT55 received", true, "RKT55", 0},
		{"taka spelled out", "Cash in taka 1200 TrxID:QQ12", true, "QQ12", 1200},
		{"no transaction id", "Your OTP is 123456", false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePaymentSMS(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.trxID, got.TrxID)
			assert.InDelta(t, tt.amount, got.Amount, 0.001)
		})
	}
}

func TestMatchPaymentSMS(t *testing.T) {
	ctx := context.Background()
	place := func(t *testing.T, f *fixture, trxID string) *domain.Order {
		f.addUser(t, "u1", 0)
		f.addToCart(t, "u1", "sketch-a4", 2)
		order, err := f.uc.Checkout(ctx, "u1", CheckoutRequest{
			ShippingAddress: dhakaAddress(),
			PaymentMethod:   domain.PaymentMethodBKash,
			PaymentTrxID:    trxID,
		})
		require.NoError(t, err)
		require.Equal(t, 1060.0, order.Total)
		return order
	}

	t.Run("verifies the pending order", func(t *testing.T) {
		f := newFixture(t)
		order := place(t, f, "9ab3xk2p")

		res, err := f.uc.MatchPaymentSMS(ctx, bkashSMS)
		require.NoError(t, err)
		require.True(t, res.Matched)
		assert.Equal(t, order.ID, res.Order.ID)
		assert.Equal(t, domain.PaymentStatusVerified, res.Order.PaymentStatus)
		assert.Equal(t, domain.OrderStatusPending, res.Order.Status)

		history, _ := f.orders.GetHistory(ctx, order.ID)
		last := history[len(history)-1]
		assert.Equal(t, domain.HistoryEventPaymentVerified, last.Event)
		assert.Equal(t, "system:sms", last.CreatedBy)

		again, err := f.uc.MatchPaymentSMS(ctx, bkashSMS)
		require.NoError(t, err)
		assert.False(t, again.Matched)
	})

	t.Run("short payment stays pending", func(t *testing.T) {
		f := newFixture(t)
		order := place(t, f, "9AB3XK2P")

		res, err := f.uc.MatchPaymentSMS(ctx, "You have received Tk 500.00 TrxID 9AB3XK2P")
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.Equal(t, "amount is below the order total", res.Reason)

		stored, _ := f.orders.GetByID(ctx, order.ID)
		assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
	})

	t.Run("message without an amount stays pending", func(t *testing.T) {
		f := newFixture(t)
		order := place(t, f, "ABC123XYZ")

		res, err := f.uc.MatchPaymentSMS(ctx, "Payment received. TrxID ABC123XYZ")
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.Equal(t, "no amount in message", res.Reason)

		stored, _ := f.orders.GetByID(ctx, order.ID)
		assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newFixture(t)
		place(t, f, "OTHER1")

		res, err := f.uc.MatchPaymentSMS(ctx, bkashSMS)
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.Equal(t, "9AB3XK2P", res.TrxID)
	})
}
