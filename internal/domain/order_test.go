package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(method PaymentMethod) *Order {
	o := &Order{
		ID:            "ord-1",
		InvoiceNo:     "INV-260301-ABCDEFGH",
		UserID:        "user-1",
		Items:         []OrderItem{{ProductID: "p1", Quantity: 2, UnitPrice: 500}},
		DeliveryFee:   60,
		PaymentMethod: method,
		PaymentStatus: PaymentStatusPending,
		Status:        OrderStatusPending,
		Version:       1,
	}
	o.Recompute()
	return o
}

func TestOrderConfirm_COD(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)

	require.NoError(t, o.Confirm(testNow))
	assert.Equal(t, OrderStatusConfirmed, o.Status)
}

func TestOrderConfirm_OnlineRequiresVerifiedPayment(t *testing.T) {
	o := newTestOrder(PaymentMethodBKash)

	err := o.Confirm(testNow)

	var terr *StateTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, OrderStatusPending, terr.From)
	assert.Equal(t, OrderStatusConfirmed, terr.To)
	assert.Equal(t, OrderStatusPending, o.Status)

	o.PaymentStatus = PaymentStatusFailed
	require.ErrorIs(t, o.Confirm(testNow), ErrInvalidState)

	require.NoError(t, o.VerifyPayment(true, testNow))
	require.NoError(t, o.Confirm(testNow))
	assert.Equal(t, OrderStatusConfirmed, o.Status)
}

func TestOrderShip_RequiresConfirmedOrProcessing(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)

	err := o.Ship("TRK1", "", testNow)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, o.TrackingCode)

	require.NoError(t, o.Confirm(testNow))
	require.NoError(t, o.MarkProcessing(testNow))
	require.ErrorIs(t, o.Ship("", "", testNow), ErrInvalidState)
	require.NoError(t, o.Ship("TRK1", "C-9", testNow))
	assert.Equal(t, OrderStatusShipped, o.Status)
	assert.Equal(t, "TRK1", *o.TrackingCode)
	assert.Equal(t, "C-9", *o.ConsignmentID)
}

func TestOrderDeliver_SettlesCOD(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)
	require.NoError(t, o.Confirm(testNow))
	require.NoError(t, o.Ship("TRK1", "", testNow))

	require.NoError(t, o.Deliver(testNow))
	assert.Equal(t, OrderStatusDelivered, o.Status)
	assert.Equal(t, PaymentStatusVerified, o.PaymentStatus)
}

func TestOrderCancel(t *testing.T) {
	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing} {
		o := newTestOrder(PaymentMethodCOD)
		o.Status = from
		require.NoError(t, o.Cancel("customer changed mind", testNow), from)
		assert.Equal(t, OrderStatusCancelled, o.Status)
		assert.Equal(t, "customer changed mind", *o.CancelReason)
	}

	o := newTestOrder(PaymentMethodCOD)
	require.ErrorIs(t, o.Cancel("  ", testNow), ErrValidation)

	o.Status = OrderStatusShipped
	require.ErrorIs(t, o.Cancel("late", testNow), ErrInvalidState)
}

func TestOrderRefundFlow(t *testing.T) {
	o := newTestOrder(PaymentMethodBKash)
	o.Status = OrderStatusDelivered

	require.ErrorIs(t, o.RequestRefund("", "017", testNow), ErrValidation)
	require.NoError(t, o.RequestRefund("damaged frame", "01700000000", testNow))
	assert.Equal(t, OrderStatusRefundRequested, o.Status)

	require.ErrorIs(t, o.ApproveRefund("", testNow), ErrValidation)
	assert.Equal(t, OrderStatusRefundRequested, o.Status)

	require.NoError(t, o.ApproveRefund("01700000000", testNow))
	assert.Equal(t, OrderStatusRefunded, o.Status)
	require.NotNil(t, o.Refund.ProcessedAt)
	assert.Equal(t, "01700000000", *o.Refund.ApprovedPaymentNumber)
}

func TestOrderRejectRefund(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)
	o.Status = OrderStatusShipped
	require.NoError(t, o.RequestRefund("wrong item", "", testNow))

	require.NoError(t, o.RejectRefund(testNow))
	assert.Equal(t, OrderStatusCancelled, o.Status)
	assert.True(t, o.Refund.Rejected)
}

func TestOrderTerminalStatesRejectEverything(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusCancelled, OrderStatusRefunded} {
		o := newTestOrder(PaymentMethodCOD)
		o.Status = status
		o.Refund = &RefundInfo{}

		attempts := []error{
			o.Confirm(testNow),
			o.MarkProcessing(testNow),
			o.Ship("TRK", "", testNow),
			o.Deliver(testNow),
			o.Cancel("again", testNow),
			o.RequestRefund("again", "", testNow),
			o.ApproveRefund("017", testNow),
			o.RejectRefund(testNow),
			o.VerifyPayment(true, testNow),
			o.OverridePrice(10, testNow),
		}
		for i, err := range attempts {
			require.Error(t, err, "attempt %d from %s", i, status)
			assert.True(t, errors.Is(err, ErrInvalidState), "attempt %d from %s: %v", i, status, err)
		}
		assert.Equal(t, status, o.Status)
		for _, to := range OrderStatuses {
			assert.False(t, CanTransition(status, to))
		}
	}
}

func TestOrderVerifyPayment(t *testing.T) {
	o := newTestOrder(PaymentMethodNagad)

	require.NoError(t, o.VerifyPayment(false, testNow))
	assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
	assert.Equal(t, OrderStatusPending, o.Status)

	require.ErrorIs(t, o.VerifyPayment(false, testNow), ErrInvalidState)
	require.NoError(t, o.VerifyPayment(true, testNow))
	assert.Equal(t, PaymentStatusVerified, o.PaymentStatus)
	require.ErrorIs(t, o.VerifyPayment(true, testNow), ErrInvalidState)
}

func TestOrderVerifyPayment_RejectsCOD(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)

	for _, approve := range []bool{true, false} {
		err := o.VerifyPayment(approve, testNow)
		var terr *StateTransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, OrderStatusPending, terr.From)
	}
	assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, o.Total, o.CODAmount())
}

func TestOrderOverridePrice(t *testing.T) {
	o := &Order{
		ID:            "quote-1",
		Items:         []OrderItem{{ProductID: "craft", Quantity: 1, UnitPrice: 0}},
		PaymentMethod: PaymentMethodBKash,
		PaymentStatus: PaymentStatusPending,
		Status:        OrderStatusPending,
		DeliveryFee:   0,
	}
	o.Recompute()
	require.True(t, o.IsQuoteRequest())

	require.NoError(t, o.OverridePrice(2500, testNow))
	assert.Equal(t, 2500.0, o.Total)
	assert.Equal(t, 2500.0, o.Subtotal)
	assert.False(t, o.IsQuoteRequest())

	// later transitions keep the override
	require.NoError(t, o.VerifyPayment(true, testNow))
	require.NoError(t, o.Confirm(testNow))
	assert.Equal(t, 2500.0, o.Total)
}

func TestOrderOverridePrice_KeepsDeliveryFee(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)

	require.NoError(t, o.OverridePrice(800, testNow))
	assert.Equal(t, 60.0, o.DeliveryFee)
	assert.Equal(t, 740.0, o.Subtotal)
	assert.Equal(t, 800.0, o.Total)

	require.ErrorIs(t, o.OverridePrice(30, testNow), ErrValidation)
	assert.Equal(t, 800.0, o.Total)
}

func TestOrderCODAmount(t *testing.T) {
	o := newTestOrder(PaymentMethodCOD)
	assert.Equal(t, 1060.0, o.CODAmount())

	prepaid := newTestOrder(PaymentMethodBKash)
	assert.Zero(t, prepaid.CODAmount())
}
