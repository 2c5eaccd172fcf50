package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"rizqara-backend/internal/domain"
)

type OrderRepo struct{ s *Store }

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.Refund != nil {
		r := *o.Refund
		c.Refund = &r
	}
	return &c
}

func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	for _, o := range r.s.orders {
		if o.InvoiceNo == order.InvoiceNo {
			return fmt.Errorf("invoice %s already exists", order.InvoiceNo)
		}
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id })
}

func (r *OrderRepo) GetByInvoice(ctx context.Context, invoiceNo string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.InvoiceNo == invoiceNo })
}

func (r *OrderRepo) GetByTrackingCode(ctx context.Context, trackingCode string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.TrackingCode != nil && *o.TrackingCode == trackingCode })
}

func (r *OrderRepo) FindPendingPaymentByTrxID(ctx context.Context, trxID string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool {
		return strings.EqualFold(o.PaymentTrxID, trxID) && o.PaymentStatus == domain.PaymentStatusPending && !o.IsTerminal()
	})
}

func (r *OrderRepo) find(match func(*domain.Order) bool) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.orders {
		if match(o) {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *OrderRepo) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	list, _, err := r.List(ctx, domain.OrderFilter{UserID: userID})
	return list, err
}

func (r *OrderRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	r.s.mu.RLock()
	var out []domain.Order
	for _, o := range r.s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Search != "" && !strings.Contains(o.InvoiceNo, f.Search) && !strings.Contains(o.ShippingAddress.Phone, f.Search) {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Order{}, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *OrderRepo) Update(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.orders[order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return &domain.ConflictError{
			OrderID:              cur.ID,
			CurrentStatus:        cur.Status,
			CurrentPaymentStatus: cur.PaymentStatus,
			CurrentVersion:       cur.Version,
		}
	}
	order.Version = expectedVersion + 1
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.orders, id)
	delete(r.s.history, id)
	return nil
}

func (r *OrderRepo) CreateHistory(ctx context.Context, h *domain.OrderHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history[h.OrderID] = append(r.s.history[h.OrderID], *h)
	return nil
}

func (r *OrderRepo) GetHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.OrderHistory, len(r.s.history[orderID]))
	copy(out, r.s.history[orderID])
	return out, nil
}

func (r *OrderRepo) StatusCounts(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[domain.OrderStatus]int64)
	for _, o := range r.s.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (r *OrderRepo) Revenue(ctx context.Context, start, end time.Time) (domain.RevenueSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum := domain.RevenueSummary{Start: start, End: end}
	for _, o := range r.s.orders {
		if o.Status != domain.OrderStatusDelivered || o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		sum.DeliveredCount++
		sum.Revenue += o.Total
	}
	sum.Revenue = domain.RoundMoney(sum.Revenue)
	if sum.DeliveredCount > 0 {
		sum.AverageOrder = domain.RoundMoney(sum.Revenue / float64(sum.DeliveredCount))
	}
	return sum, nil
}
