package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

// OrderPolicy holds the tunables of the order engine.
type OrderPolicy struct {
	Delivery                domain.DeliveryRules
	AutoBanFailedDeliveries int
	CourierTimeout          time.Duration
	CourierNote             string
}

type OrderDeps struct {
	Orders    domain.OrderRepository
	Vouchers  domain.VoucherRepository
	Users     domain.UserRepository
	Products  domain.ProductRepository
	Carts     domain.CartRepository
	Tx        domain.TransactionManager
	Courier   domain.Courier
	Notifier  domain.Notifier
	Publisher domain.EventPublisher
	Metrics   OrderMetrics
}

// OrderUsecase owns checkout and every order mutation. Mutations follow one path:
// load, guard, compare-and-set on version with a history row in the same
// transaction, then post-commit side effects.
type OrderUsecase struct {
	orderRepo   domain.OrderRepository
	voucherRepo domain.VoucherRepository
	userRepo    domain.UserRepository
	productRepo domain.ProductRepository
	cartRepo    domain.CartRepository
	txManager   domain.TransactionManager
	courier     domain.Courier
	notifier    domain.Notifier
	publisher   domain.EventPublisher
	metrics     OrderMetrics
	policy      OrderPolicy
	now         func() time.Time
}

func NewOrderUsecase(deps OrderDeps, policy OrderPolicy) *OrderUsecase {
	u := &OrderUsecase{
		orderRepo:   deps.Orders,
		voucherRepo: deps.Vouchers,
		userRepo:    deps.Users,
		productRepo: deps.Products,
		cartRepo:    deps.Carts,
		txManager:   deps.Tx,
		courier:     deps.Courier,
		notifier:    deps.Notifier,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		policy:      policy,
		now:         time.Now,
	}
	if u.notifier == nil {
		u.notifier = noopNotifier{}
	}
	if u.publisher == nil {
		u.publisher = noopPublisher{}
	}
	if u.metrics == nil {
		u.metrics = noopMetrics{}
	}
	if u.policy.CourierTimeout <= 0 {
		u.policy.CourierTimeout = 15 * time.Second
	}
	if u.policy.AutoBanFailedDeliveries <= 0 {
		u.policy.AutoBanFailedDeliveries = 5
	}
	return u
}

type change struct {
	action string
	event  string
	reason string
	apply  func(o *domain.Order, now time.Time) error
	// inTx runs after the order row is written, inside the same transaction.
	inTx func(ctx context.Context, o *domain.Order) error
}

func (u *OrderUsecase) load(ctx context.Context, orderID string, expectedVersion *int64) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != order.Version {
		return nil, &domain.ConflictError{
			OrderID:              order.ID,
			CurrentStatus:        order.Status,
			CurrentPaymentStatus: order.PaymentStatus,
			CurrentVersion:       order.Version,
		}
	}
	return order, nil
}

func (u *OrderUsecase) mutate(ctx context.Context, actor Actor, orderID string, expectedVersion *int64, c change) (*domain.Order, error) {
	order, err := u.load(ctx, orderID, expectedVersion)
	if err != nil {
		return nil, err
	}
	return u.commit(ctx, actor, order, c)
}

func (u *OrderUsecase) commit(ctx context.Context, actor Actor, order *domain.Order, c change) (*domain.Order, error) {
	from, version := order.Status, order.Version
	now := u.now()

	if err := c.apply(order, now); err != nil {
		logger.OrderRejected(ctx, order.ID, c.action, actor.ID, err)
		return nil, err
	}

	err := u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.Update(txCtx, order, version); err != nil {
			return err
		}
		prev := from
		if err := u.orderRepo.CreateHistory(txCtx, &domain.OrderHistory{
			ID:             newEventID(),
			OrderID:        order.ID,
			PreviousStatus: &prev,
			NewStatus:      order.Status,
			Event:          c.event,
			Reason:         c.reason,
			CreatedBy:      actor.ID,
			CreatedAt:      now,
		}); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
		if c.inTx != nil {
			return c.inTx(txCtx, order)
		}
		return nil
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			u.metrics.Conflict(c.action)
		}
		logger.OrderRejected(ctx, order.ID, c.action, actor.ID, err)
		return nil, err
	}

	logger.OrderTransition(ctx, order.ID, order.InvoiceNo, c.event, string(from), string(order.Status), actor.ID)
	u.metrics.OrderTransition(c.event, order.Status)
	u.afterCommit(ctx, actor, order, from, c)
	return order, nil
}

func (u *OrderUsecase) afterCommit(ctx context.Context, actor Actor, order *domain.Order, from domain.OrderStatus, c change) {
	u.publisher.Publish(ctx, domain.TopicOrderUpdated, domain.OrderEvent{
		Event:          c.event,
		PreviousStatus: from,
		Actor:          actor.ID,
		Order:          order.Summary(),
	})

	tmpl := templateFor(c.event, order.Status)
	if tmpl == "" {
		return
	}
	params := map[string]any{
		"invoiceNo": order.InvoiceNo,
		"total":     order.Total,
		"status":    string(order.Status),
	}
	if order.TrackingCode != nil {
		params["trackingCode"] = *order.TrackingCode
	}
	if c.reason != "" {
		params["reason"] = c.reason
	}
	u.notifyCustomer(ctx, order, tmpl, params)
}

func templateFor(event string, to domain.OrderStatus) string {
	switch event {
	case domain.HistoryEventStatusChanged, domain.HistoryEventCourierBooked:
		switch to {
		case domain.OrderStatusConfirmed:
			return domain.TemplateOrderConfirmed
		case domain.OrderStatusShipped:
			return domain.TemplateOrderShipped
		case domain.OrderStatusDelivered:
			return domain.TemplateOrderDelivered
		case domain.OrderStatusCancelled:
			return domain.TemplateOrderCancelled
		}
	case domain.HistoryEventPaymentVerified:
		return domain.TemplatePaymentVerified
	case domain.HistoryEventPaymentRejected:
		return domain.TemplatePaymentFailed
	case domain.HistoryEventRefundRequested:
		return domain.TemplateRefundRequested
	case domain.HistoryEventRefundApproved:
		return domain.TemplateRefundApproved
	case domain.HistoryEventRefundRejected:
		return domain.TemplateRefundRejected
	}
	return ""
}

func (u *OrderUsecase) notifyCustomer(ctx context.Context, order *domain.Order, tmpl string, params map[string]any) {
	to := domain.Recipient{
		UserID: order.UserID,
		Name:   order.ShippingAddress.RecipientName,
		Phone:  order.ShippingAddress.Phone,
	}
	if user, err := u.userRepo.GetByID(ctx, order.UserID); err == nil {
		to.Email = user.Email
	} else {
		logger.WithContext(ctx).Warn().Err(err).Str("user_id", order.UserID).Msg("Notification recipient lookup failed")
	}
	params["name"] = to.Name
	u.notifier.Notify(ctx, to, tmpl, params)
}

func ownsOrder(actor Actor, order *domain.Order) error {
	if actor.IsAdmin() || order.UserID == actor.ID {
		return nil
	}
	return domain.ErrForbidden
}

// --- Reads ---

func (u *OrderUsecase) GetOrder(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ownsOrder(actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (u *OrderUsecase) GetMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return u.orderRepo.GetByUserID(ctx, userID)
}

func (u *OrderUsecase) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	return u.orderRepo.List(ctx, filter)
}

func (u *OrderUsecase) GetOrderHistory(ctx context.Context, orderID string) ([]domain.OrderHistory, error) {
	if _, err := u.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return u.orderRepo.GetHistory(ctx, orderID)
}

// --- Transitions ---

func (u *OrderUsecase) Confirm(ctx context.Context, actor Actor, orderID string, expectedVersion *int64) (*domain.Order, error) {
	return u.mutate(ctx, actor, orderID, expectedVersion, change{
		action: "confirm",
		event:  domain.HistoryEventStatusChanged,
		apply:  (*domain.Order).Confirm,
	})
}

func (u *OrderUsecase) MarkProcessing(ctx context.Context, actor Actor, orderID string, expectedVersion *int64) (*domain.Order, error) {
	return u.mutate(ctx, actor, orderID, expectedVersion, change{
		action: "processing",
		event:  domain.HistoryEventStatusChanged,
		apply:  (*domain.Order).MarkProcessing,
	})
}

// BookShipment books the parcel with the courier and then moves the order to
// shipped. A failed booking leaves the order untouched.
func (u *OrderUsecase) BookShipment(ctx context.Context, actor Actor, orderID, note string, expectedVersion *int64) (*domain.Order, error) {
	order, err := u.load(ctx, orderID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := order.CanShip(); err != nil {
		logger.OrderRejected(ctx, order.ID, "ship", actor.ID, err)
		return nil, err
	}
	if u.courier == nil {
		return nil, &domain.ExternalServiceError{Service: "courier", Err: errors.New("no courier configured")}
	}

	note = utils.SanitizeText(note)
	if note == "" {
		note = u.policy.CourierNote
	}
	bookCtx, cancel := context.WithTimeout(ctx, u.policy.CourierTimeout)
	defer cancel()
	shipment, err := u.courier.BookShipment(bookCtx, domain.ShipmentRequest{
		Invoice:          order.InvoiceNo,
		RecipientName:    order.ShippingAddress.RecipientName,
		RecipientPhone:   order.ShippingAddress.Phone,
		RecipientAddress: order.ShippingAddress.OneLine(),
		CODAmount:        order.CODAmount(),
		Note:             note,
	})
	if err != nil {
		logger.WithContext(ctx).Error().Err(err).Str("order_id", order.ID).Msg("Courier booking failed")
		var ext *domain.ExternalServiceError
		if errors.As(err, &ext) {
			return nil, err
		}
		return nil, &domain.ExternalServiceError{Service: "courier", Err: err}
	}

	updated, err := u.commit(ctx, actor, order, change{
		action: "ship",
		event:  domain.HistoryEventCourierBooked,
		reason: "tracking " + shipment.TrackingCode,
		apply: func(o *domain.Order, now time.Time) error {
			return o.Ship(shipment.TrackingCode, shipment.ConsignmentID, now)
		},
	})
	if err != nil {
		// The parcel exists at the courier but the order moved underneath us.
		logger.WithContext(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Str("tracking_code", shipment.TrackingCode).
			Msg("Courier booked but order update failed")
		return nil, err
	}
	return updated, nil
}

func (u *OrderUsecase) MarkDelivered(ctx context.Context, actor Actor, orderID string, expectedVersion *int64) (*domain.Order, error) {
	return u.mutate(ctx, actor, orderID, expectedVersion, change{
		action: "deliver",
		event:  domain.HistoryEventStatusChanged,
		apply:  (*domain.Order).Deliver,
	})
}

// Cancel closes an open order. Customers may only cancel their own pending
// orders. failedDelivery is an admin flag that counts against the customer.
func (u *OrderUsecase) Cancel(ctx context.Context, actor Actor, orderID, reason string, failedDelivery bool, expectedVersion *int64) (*domain.Order, error) {
	order, err := u.load(ctx, orderID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := ownsOrder(actor, order); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if failedDelivery {
			return nil, domain.ErrForbidden
		}
		if order.Status != domain.OrderStatusPending {
			return nil, &domain.StateTransitionError{
				OrderID: order.ID, From: order.Status, To: domain.OrderStatusCancelled,
				Reason: "only pending orders can be cancelled by the customer",
			}
		}
	}

	reason = utils.SanitizeText(reason)
	c := change{
		action: "cancel",
		event:  domain.HistoryEventStatusChanged,
		reason: reason,
		apply: func(o *domain.Order, now time.Time) error {
			return o.Cancel(reason, now)
		},
	}
	if failedDelivery {
		c.inTx = func(txCtx context.Context, o *domain.Order) error {
			return u.recordFailedDelivery(txCtx, o.UserID, false)
		}
	}
	return u.commit(ctx, actor, order, c)
}

func (u *OrderUsecase) RequestRefund(ctx context.Context, actor Actor, orderID, reason, paymentNumber string, expectedVersion *int64) (*domain.Order, error) {
	order, err := u.load(ctx, orderID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := ownsOrder(actor, order); err != nil {
		return nil, err
	}
	reason = utils.SanitizeText(reason)
	paymentNumber = utils.NormalizePhone(paymentNumber)
	return u.commit(ctx, actor, order, change{
		action: "refund_request",
		event:  domain.HistoryEventRefundRequested,
		reason: reason,
		apply: func(o *domain.Order, now time.Time) error {
			return o.RequestRefund(reason, paymentNumber, now)
		},
	})
}

// ProcessRefund approves (refunded) or rejects (cancelled) a pending refund. It
// never touches voucher usage or stock.
func (u *OrderUsecase) ProcessRefund(ctx context.Context, actor Actor, orderID string, approve bool, refundPaymentNumber, note string, expectedVersion *int64) (*domain.Order, error) {
	note = utils.SanitizeText(note)
	if approve {
		number := utils.NormalizePhone(refundPaymentNumber)
		return u.mutate(ctx, actor, orderID, expectedVersion, change{
			action: "refund_approve",
			event:  domain.HistoryEventRefundApproved,
			reason: note,
			apply: func(o *domain.Order, now time.Time) error {
				return o.ApproveRefund(number, now)
			},
		})
	}
	return u.mutate(ctx, actor, orderID, expectedVersion, change{
		action: "refund_reject",
		event:  domain.HistoryEventRefundRejected,
		reason: note,
		apply:  (*domain.Order).RejectRefund,
	})
}

func (u *OrderUsecase) VerifyPayment(ctx context.Context, actor Actor, orderID string, approve bool, note string, expectedVersion *int64) (*domain.Order, error) {
	event := domain.HistoryEventPaymentVerified
	if !approve {
		event = domain.HistoryEventPaymentRejected
	}
	return u.mutate(ctx, actor, orderID, expectedVersion, change{
		action: event,
		event:  event,
		reason: utils.SanitizeText(note),
		apply: func(o *domain.Order, now time.Time) error {
			return o.VerifyPayment(approve, now)
		},
	})
}

func (u *OrderUsecase) OverridePrice(ctx context.Context, actor Actor, orderID string, total float64, expectedVersion *int64) (*domain.Order, error) {
	return u.mutate(ctx, actor, orderID, expectedVersion, change{
		action: "price_override",
		event:  domain.HistoryEventPriceOverridden,
		reason: fmt.Sprintf("total set to %.2f", domain.RoundMoney(total)),
		apply: func(o *domain.Order, now time.Time) error {
			return o.OverridePrice(total, now)
		},
	})
}

// Delete removes an order outright. It is an admin escape hatch outside the
// state machine.
func (u *OrderUsecase) Delete(ctx context.Context, actor Actor, orderID string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := u.orderRepo.Delete(ctx, orderID); err != nil {
		return err
	}
	logger.WithContext(ctx).Warn().
		Str("order_id", order.ID).
		Str("invoice_no", order.InvoiceNo).
		Str("actor", actor.ID).
		Msg("Order deleted")
	u.publisher.Publish(ctx, domain.TopicOrderUpdated, domain.OrderEvent{
		Event:          "deleted",
		PreviousStatus: order.Status,
		Actor:          actor.ID,
		Order:          order.Summary(),
	})
	return nil
}

type StatusUpdate struct {
	Status              domain.OrderStatus `json:"status"`
	Reason              string             `json:"reason,omitempty"`
	Note                string             `json:"note,omitempty"`
	FailedDelivery      bool               `json:"failedDelivery,omitempty"`
	RefundPaymentNumber string             `json:"refundPaymentNumber,omitempty"`
	ExpectedVersion     *int64             `json:"expectedVersion,omitempty"`
}

// UpdateStatus routes a target status to the matching transition.
func (u *OrderUsecase) UpdateStatus(ctx context.Context, actor Actor, orderID string, req StatusUpdate) (*domain.Order, error) {
	switch req.Status {
	case domain.OrderStatusConfirmed:
		return u.Confirm(ctx, actor, orderID, req.ExpectedVersion)
	case domain.OrderStatusProcessing:
		return u.MarkProcessing(ctx, actor, orderID, req.ExpectedVersion)
	case domain.OrderStatusShipped:
		return u.BookShipment(ctx, actor, orderID, req.Note, req.ExpectedVersion)
	case domain.OrderStatusDelivered:
		return u.MarkDelivered(ctx, actor, orderID, req.ExpectedVersion)
	case domain.OrderStatusRefundRequested:
		return u.RequestRefund(ctx, actor, orderID, req.Reason, req.RefundPaymentNumber, req.ExpectedVersion)
	case domain.OrderStatusRefunded:
		return u.ProcessRefund(ctx, actor, orderID, true, req.RefundPaymentNumber, req.Note, req.ExpectedVersion)
	case domain.OrderStatusCancelled:
		order, err := u.load(ctx, orderID, req.ExpectedVersion)
		if err != nil {
			return nil, err
		}
		if order.Status == domain.OrderStatusRefundRequested {
			return u.ProcessRefund(ctx, actor, orderID, false, "", firstNonEmpty(req.Reason, req.Note), req.ExpectedVersion)
		}
		return u.Cancel(ctx, actor, orderID, req.Reason, req.FailedDelivery, req.ExpectedVersion)
	case domain.OrderStatusPending:
		order, err := u.load(ctx, orderID, nil)
		if err != nil {
			return nil, err
		}
		return nil, &domain.StateTransitionError{OrderID: order.ID, From: order.Status, To: domain.OrderStatusPending}
	}
	return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", req.Status))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// --- Courier outcomes ---

type courierOutcome int

const (
	outcomeNone courierOutcome = iota
	outcomeDelivered
	outcomeFailed
)

func classifyCourierStatus(status string) courierOutcome {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "delivered", "delivered_approval_pending", "partial_delivered", "partial_delivered_approval_pending":
		return outcomeDelivered
	case "cancelled", "cancelled_approval_pending", "returned", "return":
		return outcomeFailed
	}
	return outcomeNone
}

// RecordCourierOutcome applies a courier status report. Delivered parcels close
// the order; returned or cancelled parcels count as a failed delivery and leave
// the order shipped for follow-up. Repeated reports are no-ops.
func (u *OrderUsecase) RecordCourierOutcome(ctx context.Context, trackingCode, status string) (*domain.Order, error) {
	order, err := u.orderRepo.GetByTrackingCode(ctx, strings.TrimSpace(trackingCode))
	if err != nil {
		return nil, err
	}
	actor := SystemActor("courier")

	switch classifyCourierStatus(status) {
	case outcomeDelivered:
		if order.Status != domain.OrderStatusShipped {
			return order, nil
		}
		return u.commit(ctx, actor, order, change{
			action: "deliver",
			event:  domain.HistoryEventStatusChanged,
			reason: "courier status " + status,
			apply:  (*domain.Order).Deliver,
		})
	case outcomeFailed:
		if order.Status != domain.OrderStatusShipped {
			return order, nil
		}
		history, err := u.orderRepo.GetHistory(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		for _, h := range history {
			if h.Event == domain.HistoryEventDeliveryFailed {
				return order, nil
			}
		}
		return u.commit(ctx, actor, order, change{
			action: "delivery_failed",
			event:  domain.HistoryEventDeliveryFailed,
			reason: "courier status " + status,
			apply: func(o *domain.Order, now time.Time) error {
				o.UpdatedAt = now
				return nil
			},
			inTx: func(txCtx context.Context, o *domain.Order) error {
				return u.recordFailedDelivery(txCtx, o.UserID, true)
			},
		})
	}
	return order, nil
}

// SyncCourierStatus polls the courier for the order's parcel and applies the result.
func (u *OrderUsecase) SyncCourierStatus(ctx context.Context, orderID string) (*domain.Order, string, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if order.TrackingCode == nil {
		return nil, "", domain.NewValidationError("trackingCode", "order has not been booked with the courier")
	}
	if u.courier == nil {
		return nil, "", &domain.ExternalServiceError{Service: "courier", Err: errors.New("no courier configured")}
	}

	pollCtx, cancel := context.WithTimeout(ctx, u.policy.CourierTimeout)
	defer cancel()
	status, err := u.courier.DeliveryStatus(pollCtx, *order.TrackingCode)
	if err != nil {
		var ext *domain.ExternalServiceError
		if !errors.As(err, &ext) {
			err = &domain.ExternalServiceError{Service: "courier", Err: err}
		}
		return nil, "", err
	}

	updated, err := u.RecordCourierOutcome(ctx, *order.TrackingCode, status)
	if err != nil {
		return nil, status, err
	}
	return updated, status, nil
}

// TrackingCodeForInvoice resolves courier callbacks that only carry our invoice number.
func (u *OrderUsecase) TrackingCodeForInvoice(ctx context.Context, invoiceNo string) (string, error) {
	order, err := u.orderRepo.GetByInvoice(ctx, strings.TrimSpace(invoiceNo))
	if err != nil {
		return "", err
	}
	if order.TrackingCode == nil {
		return "", domain.NewValidationError("invoice", "order has not been booked with the courier")
	}
	return *order.TrackingCode, nil
}

// recordFailedDelivery bumps the customer's counters and bans them once the
// configured threshold is reached.
func (u *OrderUsecase) recordFailedDelivery(ctx context.Context, userID string, returned bool) error {
	count, err := u.userRepo.RecordFailedDelivery(ctx, userID, returned)
	if err != nil {
		return fmt.Errorf("record failed delivery: %w", err)
	}
	if count < u.policy.AutoBanFailedDeliveries {
		return nil
	}
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsBanned {
		return nil
	}
	reason := "excessive failed deliveries"
	if err := u.userRepo.SetBan(ctx, userID, true, &reason); err != nil {
		return err
	}
	logger.WithContext(ctx).Warn().
		Str("user_id", userID).
		Int("failed_deliveries", count).
		Msg("Customer banned after repeated failed deliveries")
	return nil
}
