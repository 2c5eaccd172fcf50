package memory

import (
	"context"
	"sort"

	"rizqara-backend/internal/domain"
)

type ProductRepo struct{ s *Store }

func NewProductRepo(s *Store) *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (r *ProductRepo) ListActive(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	r.s.mu.RLock()
	var out []domain.Product
	for _, p := range r.s.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TitleEn < out[j].TitleEn })
	if offset >= len(out) {
		return []domain.Product{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepo) Upsert(ctx context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *p
	r.s.products[p.ID] = &c
	return nil
}

type CartRepo struct{ s *Store }

func NewCartRepo(s *Store) *CartRepo { return &CartRepo{s: s} }

func (r *CartRepo) GetItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.CartItem, len(r.s.carts[userID]))
	copy(out, r.s.carts[userID])
	return out, nil
}

func (r *CartRepo) AddItem(ctx context.Context, item *domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[item.UserID] = append(r.s.carts[item.UserID], *item)
	return nil
}

func (r *CartRepo) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *CartRepo) RemoveItem(ctx context.Context, userID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			r.s.carts[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.carts, userID)
	return nil
}
