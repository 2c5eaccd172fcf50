package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rizqara-backend/internal/domain"
)

type VoucherRepo struct{ s *Store }

func NewVoucherRepo(s *Store) *VoucherRepo { return &VoucherRepo{s: s} }

func cloneVoucher(v *domain.Voucher) *domain.Voucher {
	c := *v
	if v.UsageLimit != nil {
		l := *v.UsageLimit
		c.UsageLimit = &l
	}
	return &c
}

func (r *VoucherRepo) byCodeLocked(code string) *domain.Voucher {
	code = domain.NormalizeVoucherCode(code)
	for _, v := range r.s.vouchers {
		if v.Code == code {
			return v
		}
	}
	return nil
}

func (r *VoucherRepo) Create(ctx context.Context, v *domain.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.byCodeLocked(v.Code) != nil {
		return domain.NewValidationError("code", fmt.Sprintf("voucher %s already exists", v.Code))
	}
	r.s.vouchers[v.ID] = cloneVoucher(v)
	return nil
}

func (r *VoucherRepo) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vouchers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneVoucher(v), nil
}

func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v := r.byCodeLocked(code)
	if v == nil {
		return nil, domain.ErrNotFound
	}
	return cloneVoucher(v), nil
}

func (r *VoucherRepo) List(ctx context.Context, limit, offset int) ([]domain.Voucher, int64, error) {
	r.s.mu.RLock()
	out := make([]domain.Voucher, 0, len(r.s.vouchers))
	for _, v := range r.s.vouchers {
		out = append(out, *cloneVoucher(v))
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return []domain.Voucher{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *VoucherRepo) Update(ctx context.Context, v *domain.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vouchers[v.ID]; !ok {
		return domain.ErrNotFound
	}
	if other := r.byCodeLocked(v.Code); other != nil && other.ID != v.ID {
		return domain.NewValidationError("code", fmt.Sprintf("voucher %s already exists", v.Code))
	}
	r.s.vouchers[v.ID] = cloneVoucher(v)
	return nil
}

func (r *VoucherRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vouchers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.vouchers, id)
	return nil
}

func (r *VoucherRepo) IncrementUsage(ctx context.Context, code string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v := r.byCodeLocked(code)
	if v == nil {
		return &domain.VoucherError{Kind: domain.VoucherNotFound, Code: domain.NormalizeVoucherCode(code)}
	}
	if verr := v.Check(now); verr != nil {
		return verr
	}
	v.UsedCount++
	v.UpdatedAt = now
	return nil
}
