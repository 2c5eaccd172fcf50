package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rizqara-backend/internal/domain"
)

func TestIncrementUsage_NeverExceedsLimit(t *testing.T) {
	repo := NewVoucherRepo(NewStore())
	now := time.Now()
	limit := 5
	require.NoError(t, repo.Create(context.Background(), &domain.Voucher{
		ID: "v1", Code: "EID5", Discount: 5, MaxDiscount: 100,
		ValidUntil: now.Add(time.Hour), IsActive: true, UsageLimit: &limit,
	}))

	var ok, limited atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.IncrementUsage(context.Background(), "eid5", now)
			switch {
			case err == nil:
				ok.Add(1)
			case domain.IsVoucherError(err, domain.VoucherUsageLimitReached):
				limited.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), ok.Load())
	assert.Equal(t, int32(15), limited.Load())
	v, err := repo.GetByCode(context.Background(), "EID5")
	require.NoError(t, err)
	assert.Equal(t, 5, v.UsedCount)
}

func TestOrderUpdate_CompareAndSet(t *testing.T) {
	repo := NewOrderRepo(NewStore())
	o := &domain.Order{ID: "o1", InvoiceNo: "INV-1", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending, Version: 1}
	require.NoError(t, repo.Create(context.Background(), o))

	first, _ := repo.GetByID(context.Background(), "o1")
	second, _ := repo.GetByID(context.Background(), "o1")

	first.Status = domain.OrderStatusConfirmed
	require.NoError(t, repo.Update(context.Background(), first, 1))
	assert.Equal(t, int64(2), first.Version)

	second.Status = domain.OrderStatusCancelled
	err := repo.Update(context.Background(), second, 1)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.OrderStatusConfirmed, conflict.CurrentStatus)
	assert.Equal(t, int64(2), conflict.CurrentVersion)
}
