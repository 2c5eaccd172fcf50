package domain

import (
	"context"
	"slices"
	"strings"
	"time"
)

type ShippingAddress struct {
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	Division      string `json:"division"`
	District      string `json:"district"`
	Upazila       string `json:"upazila"`
	Details       string `json:"details"`
}

func (a ShippingAddress) Validate() error {
	switch {
	case strings.TrimSpace(a.RecipientName) == "":
		return NewValidationError("shippingAddress.recipientName", "recipient name is required")
	case strings.TrimSpace(a.Phone) == "":
		return NewValidationError("shippingAddress.phone", "phone is required")
	case strings.TrimSpace(a.Division) == "":
		return NewValidationError("shippingAddress.division", "division is required")
	case strings.TrimSpace(a.District) == "":
		return NewValidationError("shippingAddress.district", "district is required")
	case strings.TrimSpace(a.Details) == "":
		return NewValidationError("shippingAddress.details", "address details are required")
	}
	return nil
}

// OneLine formats the address for courier labels.
func (a ShippingAddress) OneLine() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Details, a.Upazila, a.District, a.Division} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

type OrderItem struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"orderId"`
	ProductID     string        `json:"productId"`
	TitleEn       string        `json:"titleEn"`
	TitleBn       string        `json:"titleBn"`
	Category      string        `json:"category"`
	Variant       string        `json:"variant,omitempty"`
	Quantity      int           `json:"quantity"`
	UnitPrice     float64       `json:"unitPrice"`
	DiscountPrice *float64      `json:"discountPrice,omitempty"`
	Customization Customization `json:"customization"`
}

func (i OrderItem) PriceLine() PriceLine {
	return PriceLine{UnitPrice: i.UnitPrice, DiscountPrice: i.DiscountPrice, Quantity: i.Quantity}
}

type RefundInfo struct {
	RequestedAt           time.Time  `json:"requestedAt"`
	Reason                string     `json:"reason"`
	PaymentNumber         string     `json:"paymentNumber,omitempty"`
	ApprovedPaymentNumber *string    `json:"approvedPaymentNumber,omitempty"`
	ProcessedAt           *time.Time `json:"processedAt,omitempty"`
	Rejected              bool       `json:"rejected"`
}

type Order struct {
	ID                string          `json:"id"`
	InvoiceNo         string          `json:"invoiceNo"`
	UserID            string          `json:"userId"`
	Items             []OrderItem     `json:"items"`
	ShippingAddress   ShippingAddress `json:"shippingAddress"`
	Subtotal          float64         `json:"subtotal"`
	DeliveryFee       float64         `json:"deliveryFee"`
	VoucherCode       *string         `json:"voucherCode,omitempty"`
	VoucherDiscount   float64         `json:"voucherDiscount"`
	Total             float64         `json:"total"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	PaymentTrxID      string          `json:"paymentTrxId,omitempty"`
	PaymentScreenshot string          `json:"paymentScreenshot,omitempty"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	Status            OrderStatus     `json:"status"`
	TrackingCode      *string         `json:"trackingCode,omitempty"`
	ConsignmentID     *string         `json:"consignmentId,omitempty"`
	CancelReason      *string         `json:"cancelReason,omitempty"`
	Refund            *RefundInfo     `json:"refund,omitempty"`
	PriceOverridden   bool            `json:"priceOverridden"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type OrderHistory struct {
	ID             string       `json:"id"`
	OrderID        string       `json:"orderId"`
	PreviousStatus *OrderStatus `json:"previousStatus,omitempty"`
	NewStatus      OrderStatus  `json:"newStatus"`
	Event          string       `json:"event"`
	Reason         string       `json:"reason,omitempty"`
	CreatedBy      string       `json:"createdBy"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// OrderSummary is the payload broadcast to admin dashboards.
type OrderSummary struct {
	ID            string        `json:"id"`
	InvoiceNo     string        `json:"invoiceNo"`
	UserID        string        `json:"userId"`
	Total         float64       `json:"total"`
	ItemCount     int           `json:"itemCount"`
	District      string        `json:"district"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// OrderEvent is published on the order topics after a mutation commits.
type OrderEvent struct {
	Event          string       `json:"event"`
	PreviousStatus OrderStatus  `json:"previousStatus,omitempty"`
	Actor          string       `json:"actor"`
	Order          OrderSummary `json:"order"`
}

func (o *Order) Summary() OrderSummary {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return OrderSummary{
		ID:            o.ID,
		InvoiceNo:     o.InvoiceNo,
		UserID:        o.UserID,
		Total:         o.Total,
		ItemCount:     count,
		District:      o.ShippingAddress.District,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}

func (o *Order) PriceLines() []PriceLine {
	lines := make([]PriceLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = it.PriceLine()
	}
	return lines
}

func (o *Order) IsQuoteRequest() bool {
	return !o.PriceOverridden && IsQuoteRequest(o.PriceLines())
}

func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCancelled || o.Status == OrderStatusRefunded
}

// CODAmount is what the courier collects on delivery.
func (o *Order) CODAmount() float64 {
	if o.PaymentMethod == PaymentMethodCOD && o.PaymentStatus != PaymentStatusVerified {
		return o.Total
	}
	return 0
}

// Recompute keeps total = subtotal + deliveryFee - voucherDiscount. After a price
// override the subtotal is the one derived from the override, not the items.
func (o *Order) Recompute() {
	if !o.PriceOverridden {
		o.Subtotal = Subtotal(o.PriceLines())
	}
	o.Total = GrandTotal(o.Subtotal, o.DeliveryFee, o.VoucherDiscount)
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusDelivered, OrderStatusRefundRequested},
	OrderStatusDelivered:       {OrderStatusRefundRequested},
	OrderStatusRefundRequested: {OrderStatusRefunded, OrderStatusCancelled},
}

func CanTransition(from, to OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

func (o *Order) transitionError(to OrderStatus, reason string) *StateTransitionError {
	return &StateTransitionError{OrderID: o.ID, From: o.Status, To: to, Reason: reason}
}

func (o *Order) moveTo(to OrderStatus, now time.Time) error {
	if !CanTransition(o.Status, to) {
		return o.transitionError(to, "")
	}
	o.Status = to
	o.UpdatedAt = now
	o.Recompute()
	return nil
}

// Confirm requires a COD order or a verified payment.
func (o *Order) Confirm(now time.Time) error {
	if o.Status == OrderStatusPending && o.PaymentMethod != PaymentMethodCOD && o.PaymentStatus != PaymentStatusVerified {
		return o.transitionError(OrderStatusConfirmed, "payment is not verified")
	}
	return o.moveTo(OrderStatusConfirmed, now)
}

func (o *Order) MarkProcessing(now time.Time) error {
	if o.Status != OrderStatusConfirmed {
		return o.transitionError(OrderStatusProcessing, "")
	}
	return o.moveTo(OrderStatusProcessing, now)
}

// CanShip is checked before the courier is called so a booking is never made for
// an order that could not accept its tracking code.
func (o *Order) CanShip() error {
	if o.Status != OrderStatusConfirmed && o.Status != OrderStatusProcessing {
		return o.transitionError(OrderStatusShipped, "order must be confirmed or processing")
	}
	return nil
}

func (o *Order) Ship(trackingCode, consignmentID string, now time.Time) error {
	if err := o.CanShip(); err != nil {
		return err
	}
	if strings.TrimSpace(trackingCode) == "" {
		return o.transitionError(OrderStatusShipped, "tracking code is required")
	}
	o.TrackingCode = &trackingCode
	if consignmentID != "" {
		o.ConsignmentID = &consignmentID
	}
	return o.moveTo(OrderStatusShipped, now)
}

// Deliver marks the parcel delivered. Cash collected by the courier settles a COD payment.
func (o *Order) Deliver(now time.Time) error {
	if err := o.moveTo(OrderStatusDelivered, now); err != nil {
		return err
	}
	if o.PaymentMethod == PaymentMethodCOD {
		o.PaymentStatus = PaymentStatusVerified
	}
	return nil
}

func (o *Order) Cancel(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason", "a cancellation reason is required")
	}
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
	default:
		return o.transitionError(OrderStatusCancelled, "")
	}
	if err := o.moveTo(OrderStatusCancelled, now); err != nil {
		return err
	}
	o.CancelReason = &reason
	return nil
}

func (o *Order) RequestRefund(reason, paymentNumber string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason", "a refund reason is required")
	}
	if err := o.moveTo(OrderStatusRefundRequested, now); err != nil {
		return err
	}
	o.Refund = &RefundInfo{RequestedAt: now, Reason: reason, PaymentNumber: paymentNumber}
	return nil
}

// ApproveRefund stamps the processed time. Voucher usage and stock are left alone.
func (o *Order) ApproveRefund(refundPaymentNumber string, now time.Time) error {
	if strings.TrimSpace(refundPaymentNumber) == "" {
		return NewValidationError("refundPaymentNumber", "a refund payment number is required")
	}
	if err := o.moveTo(OrderStatusRefunded, now); err != nil {
		return err
	}
	if o.Refund == nil {
		o.Refund = &RefundInfo{}
	}
	o.Refund.ApprovedPaymentNumber = &refundPaymentNumber
	o.Refund.ProcessedAt = &now
	return nil
}

func (o *Order) RejectRefund(now time.Time) error {
	if o.Status != OrderStatusRefundRequested {
		return o.transitionError(OrderStatusCancelled, "no refund is pending")
	}
	if err := o.moveTo(OrderStatusCancelled, now); err != nil {
		return err
	}
	if o.Refund != nil {
		o.Refund.Rejected = true
		o.Refund.ProcessedAt = &now
	}
	return nil
}

// VerifyPayment is independent of the fulfillment status. Rejection marks the
// payment failed and leaves the order open; a failed payment may later be approved.
// Cash on delivery settles only through Deliver.
func (o *Order) VerifyPayment(approve bool, now time.Time) error {
	if o.IsTerminal() {
		return o.transitionError(o.Status, "payment cannot change on a closed order")
	}
	if o.PaymentMethod == PaymentMethodCOD {
		return o.transitionError(o.Status, "cash on delivery is settled on delivery")
	}
	switch {
	case approve && o.PaymentStatus == PaymentStatusVerified:
		return o.transitionError(o.Status, "payment is already verified")
	case !approve && o.PaymentStatus != PaymentStatusPending:
		return o.transitionError(o.Status, "only a pending payment can be rejected")
	}
	if approve {
		o.PaymentStatus = PaymentStatusVerified
	} else {
		o.PaymentStatus = PaymentStatusFailed
	}
	o.UpdatedAt = now
	o.Recompute()
	return nil
}

// OverridePrice sets a manual total, used to bill quote requests. The delivery
// fee and voucher discount stay as computed and the subtotal absorbs the change.
func (o *Order) OverridePrice(total float64, now time.Time) error {
	if o.IsTerminal() {
		return o.transitionError(o.Status, "price cannot change on a closed order")
	}
	total = RoundMoney(total)
	if total < 0 {
		return NewValidationError("total", "total cannot be negative")
	}
	subtotal := RoundMoney(total - o.DeliveryFee + o.VoucherDiscount)
	if subtotal < 0 {
		return NewValidationError("total", "total cannot be below the delivery fee less the voucher discount")
	}
	o.Subtotal = subtotal
	o.PriceOverridden = true
	o.UpdatedAt = now
	o.Recompute()
	return nil
}

type OrderFilter struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
	UserID        string
	Search        string // invoice number or phone
	Limit         int
	Offset        int
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByInvoice(ctx context.Context, invoiceNo string) (*Order, error)
	GetByTrackingCode(ctx context.Context, trackingCode string) (*Order, error)
	FindPendingPaymentByTrxID(ctx context.Context, trxID string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	// Update writes order only if the stored version still equals expectedVersion,
	// and bumps order.Version. A mismatch returns a *ConflictError.
	Update(ctx context.Context, order *Order, expectedVersion int64) error
	Delete(ctx context.Context, id string) error

	CreateHistory(ctx context.Context, h *OrderHistory) error
	GetHistory(ctx context.Context, orderID string) ([]OrderHistory, error)

	StatusCounts(ctx context.Context) (map[OrderStatus]int64, error)
	Revenue(ctx context.Context, start, end time.Time) (RevenueSummary, error)
}

type RevenueSummary struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	DeliveredCount int64     `json:"deliveredCount"`
	Revenue        float64   `json:"revenue"`
	AverageOrder   float64   `json:"averageOrder"`
}
