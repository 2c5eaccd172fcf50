package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rizqara-backend/internal/domain"
)

type orderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) domain.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, invoice_no, user_id, shipping_address, subtotal, delivery_fee, voucher_code,
	voucher_discount, total, payment_method, payment_trx_id, payment_screenshot, payment_status, status,
	tracking_code, consignment_id, cancel_reason, refund, price_overridden, version, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                             domain.Order
		addr, refund                  []byte
		method, paymentStatus, status string
	)
	err := row.Scan(&o.ID, &o.InvoiceNo, &o.UserID, &addr, &o.Subtotal, &o.DeliveryFee, &o.VoucherCode,
		&o.VoucherDiscount, &o.Total, &method, &o.PaymentTrxID, &o.PaymentScreenshot, &paymentStatus, &status,
		&o.TrackingCode, &o.ConsignmentID, &o.CancelReason, &refund, &o.PriceOverridden, &o.Version,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if len(refund) > 0 {
		o.Refund = &domain.RefundInfo{}
		if err := json.Unmarshal(refund, o.Refund); err != nil {
			return nil, fmt.Errorf("decode refund: %w", err)
		}
	}
	return &o, nil
}

func marshalRefund(r *domain.RefundInfo) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	q := conn(ctx, r.db)

	addr, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	refund, err := marshalRefund(order.Refund)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		order.ID, order.InvoiceNo, order.UserID, addr, order.Subtotal, order.DeliveryFee, order.VoucherCode,
		order.VoucherDiscount, order.Total, string(order.PaymentMethod), order.PaymentTrxID, order.PaymentScreenshot,
		string(order.PaymentStatus), string(order.Status), order.TrackingCode, order.ConsignmentID, order.CancelReason,
		refund, order.PriceOverridden, order.Version, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s / %s already exists: %w", order.ID, order.InvoiceNo, err)
		}
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		custom, err := json.Marshal(item.Customization)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `INSERT INTO order_items
			(id, order_id, position, product_id, title_en, title_bn, category, variant, quantity, unit_price, discount_price, customization)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			item.ID, order.ID, i, item.ProductID, item.TitleEn, item.TitleBn, item.Category, item.Variant,
			item.Quantity, item.UnitPrice, item.DiscountPrice, custom)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepository) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	q := conn(ctx, r.db)
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+` LIMIT 1`, arg))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.attachItems(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *orderRepository) GetByInvoice(ctx context.Context, invoiceNo string) (*domain.Order, error) {
	return r.getOne(ctx, "invoice_no = $1", invoiceNo)
}

func (r *orderRepository) GetByTrackingCode(ctx context.Context, trackingCode string) (*domain.Order, error) {
	return r.getOne(ctx, "tracking_code = $1", trackingCode)
}

func (r *orderRepository) FindPendingPaymentByTrxID(ctx context.Context, trxID string) (*domain.Order, error) {
	return r.getOne(ctx,
		"upper(payment_trx_id) = upper($1) AND payment_status = 'pending' AND status NOT IN ('cancelled', 'refunded')",
		trxID)
}

func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}

	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, order_id, product_id, title_en, title_bn, category, variant,
		quantity, unit_price, discount_price, customization
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it     domain.OrderItem
			custom []byte
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.TitleEn, &it.TitleBn, &it.Category, &it.Variant,
			&it.Quantity, &it.UnitPrice, &it.DiscountPrice, &custom); err != nil {
			return err
		}
		if err := json.Unmarshal(custom, &it.Customization); err != nil {
			return fmt.Errorf("decode customization: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *orderRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, _, err := r.List(ctx, domain.OrderFilter{UserID: userID, Limit: 200})
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", string(f.PaymentStatus))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Search != "" {
		add("(invoice_no ILIKE '%%' || $%[1]d::text || '%%' OR shipping_address->>'phone' LIKE '%%' || $%[1]d::text || '%%')", f.Search)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	q := conn(ctx, r.db)
	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ptrs []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Order, len(ptrs))
	for i, o := range ptrs {
		out[i] = *o
	}
	return out, total, nil
}

func (r *orderRepository) Update(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	q := conn(ctx, r.db)
	refund, err := marshalRefund(order.Refund)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE orders SET
			subtotal = $3, delivery_fee = $4, voucher_discount = $5, total = $6,
			payment_status = $7, status = $8, tracking_code = $9, consignment_id = $10,
			cancel_reason = $11, refund = $12, price_overridden = $13, payment_screenshot = $14,
			version = version + 1, updated_at = $15
		WHERE id = $1 AND version = $2`,
		order.ID, expectedVersion,
		order.Subtotal, order.DeliveryFee, order.VoucherDiscount, order.Total,
		string(order.PaymentStatus), string(order.Status), order.TrackingCode, order.ConsignmentID,
		order.CancelReason, refund, order.PriceOverridden, order.PaymentScreenshot,
		order.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		order.Version = expectedVersion + 1
		return nil
	}

	var (
		status, paymentStatus string
		version               int64
	)
	err = q.QueryRow(ctx, `SELECT status, payment_status, version FROM orders WHERE id = $1`, order.ID).
		Scan(&status, &paymentStatus, &version)
	if err != nil {
		return notFound(err)
	}
	return &domain.ConflictError{
		OrderID:              order.ID,
		CurrentStatus:        domain.OrderStatus(status),
		CurrentPaymentStatus: domain.PaymentStatus(paymentStatus),
		CurrentVersion:       version,
	}
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepository) CreateHistory(ctx context.Context, h *domain.OrderHistory) error {
	var prev *string
	if h.PreviousStatus != nil {
		s := string(*h.PreviousStatus)
		prev = &s
	}
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO order_history
		(id, order_id, previous_status, new_status, event, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.OrderID, prev, string(h.NewStatus), h.Event, h.Reason, h.CreatedBy, h.CreatedAt)
	return err
}

func (r *orderRepository) GetHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, order_id, previous_status, new_status, event, reason, created_by, created_at
		FROM order_history WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OrderHistory{}
	for rows.Next() {
		var (
			h         domain.OrderHistory
			prev      *string
			newStatus string
		)
		if err := rows.Scan(&h.ID, &h.OrderID, &prev, &newStatus, &h.Event, &h.Reason, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.NewStatus = domain.OrderStatus(newStatus)
		if prev != nil {
			ps := domain.OrderStatus(*prev)
			h.PreviousStatus = &ps
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *orderRepository) StatusCounts(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.OrderStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *orderRepository) Revenue(ctx context.Context, start, end time.Time) (domain.RevenueSummary, error) {
	sum := domain.RevenueSummary{Start: start, End: end}
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT count(*), COALESCE(sum(total), 0)::float8
		FROM orders WHERE status = 'delivered' AND created_at >= $1 AND created_at < $2`, start, end).
		Scan(&sum.DeliveredCount, &sum.Revenue)
	if err != nil {
		return sum, err
	}
	if sum.DeliveredCount > 0 {
		sum.AverageOrder = domain.RoundMoney(sum.Revenue / float64(sum.DeliveredCount))
	}
	return sum, nil
}
