package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rizqara-backend/internal/domain"
)

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	orders := NewOrderRepo(store)
	vouchers := NewVoucherRepo(store)
	tx := NewTxManager(store)
	now := time.Now()

	require.NoError(t, vouchers.Create(ctx, &domain.Voucher{
		ID: "v1", Code: "SAVE10", Discount: 10, MaxDiscount: 200,
		ValidUntil: now.Add(time.Hour), IsActive: true,
	}))
	existing := &domain.Order{ID: "o1", InvoiceNo: "INV-1", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending, Version: 1}
	require.NoError(t, orders.Create(ctx, existing))

	errBoom := errors.New("boom")
	err := tx.Do(ctx, func(txCtx context.Context) error {
		require.NoError(t, vouchers.IncrementUsage(txCtx, "SAVE10", now))
		require.NoError(t, orders.Create(txCtx, &domain.Order{ID: "o2", InvoiceNo: "INV-2", Version: 1}))
		o, err := orders.GetByID(txCtx, "o1")
		require.NoError(t, err)
		o.Status = domain.OrderStatusCancelled
		require.NoError(t, orders.Update(txCtx, o, 1))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	v, err := vouchers.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, v.UsedCount)
	_, err = orders.GetByID(ctx, "o2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	o1, err := orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o1.Status)
	assert.Equal(t, int64(1), o1.Version)
}

func TestTxManager_NestedCallsJoinOuter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	orders := NewOrderRepo(store)
	tx := NewTxManager(store)

	err := tx.Do(ctx, func(txCtx context.Context) error {
		require.NoError(t, orders.Create(txCtx, &domain.Order{ID: "o1", InvoiceNo: "INV-1", Version: 1}))
		return tx.Do(txCtx, func(inner context.Context) error {
			return errors.New("inner failed")
		})
	})
	require.Error(t, err)
	_, err = orders.GetByID(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, tx.Do(ctx, func(txCtx context.Context) error {
		return orders.Create(txCtx, &domain.Order{ID: "o1", InvoiceNo: "INV-1", Version: 1})
	}))
	_, err = orders.GetByID(ctx, "o1")
	assert.NoError(t, err)
}
