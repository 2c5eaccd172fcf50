package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

type CheckoutRequest struct {
	ShippingAddress   domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod     domain.PaymentMethod   `json:"paymentMethod"`
	PaymentTrxID      string                 `json:"paymentTrxId,omitempty"`
	PaymentScreenshot string                 `json:"paymentScreenshot,omitempty"`
	VoucherCode       string                 `json:"voucherCode,omitempty"`
	// ClientTotal is what the storefront displayed. It is only compared and logged.
	ClientTotal *float64 `json:"total,omitempty"`
}

// Checkout turns the customer's server-held cart into an order. Prices come from
// the catalog, never from the request.
func (u *OrderUsecase) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*domain.Order, error) {
	log := logger.WithContext(ctx)

	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, domain.ErrUserBanned
	}

	addr := sanitizeAddress(req.ShippingAddress)
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if !req.PaymentMethod.Valid() {
		return nil, domain.NewValidationError("paymentMethod", fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}

	items, err := u.buildOrderItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.PriceLine, len(items))
	for i, it := range items {
		lines[i] = it.PriceLine()
	}
	quote := domain.IsQuoteRequest(lines)

	if req.PaymentMethod == domain.PaymentMethodCOD && !domain.CODAllowed(user) {
		return nil, domain.NewValidationError("paymentMethod", "cash on delivery is not available for this account, please pay online").WithCode(domain.ValidationCODUnavailable)
	}
	trxID := strings.ToUpper(strings.TrimSpace(req.PaymentTrxID))
	if req.PaymentMethod.IsOnline() && !quote && trxID == "" {
		return nil, domain.NewValidationError("paymentTrxId", "a transaction ID is required for "+string(req.PaymentMethod)).WithCode(domain.ValidationTrxIDRequired)
	}

	voucher, err := u.findVoucher(ctx, req.VoucherCode)
	if err != nil {
		var ve *domain.VoucherError
		if errors.As(err, &ve) {
			u.metrics.VoucherRejected(ve.Kind)
		}
		return nil, err
	}

	now := u.now()
	price := domain.CalculatePrice(lines, addr.District, voucher, u.policy.Delivery, now)
	if price.VoucherErr != nil {
		u.metrics.VoucherRejected(price.VoucherErr.Kind)
		return nil, price.VoucherErr
	}
	if req.ClientTotal != nil && domain.RoundMoney(*req.ClientTotal) != price.Total {
		log.Warn().
			Str("user_id", userID).
			Float64("client_total", *req.ClientTotal).
			Float64("server_total", price.Total).
			Msg("Checkout total mismatch, using server price")
	}

	order := &domain.Order{
		ID:                uuid.NewString(),
		InvoiceNo:         newInvoiceNo(now),
		UserID:            userID,
		Items:             items,
		ShippingAddress:   addr,
		Subtotal:          price.Subtotal,
		DeliveryFee:       price.DeliveryFee,
		VoucherDiscount:   price.VoucherDiscount,
		Total:             price.Total,
		PaymentMethod:     req.PaymentMethod,
		PaymentTrxID:      trxID,
		PaymentScreenshot: strings.TrimSpace(req.PaymentScreenshot),
		PaymentStatus:     domain.PaymentStatusPending,
		Status:            domain.OrderStatusPending,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if voucher != nil {
		code := voucher.Code
		order.VoucherCode = &code
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if voucher != nil {
			if err := u.voucherRepo.IncrementUsage(txCtx, voucher.Code, now); err != nil {
				return err
			}
		}
		if err := u.orderRepo.Create(txCtx, order); err != nil {
			return err
		}
		if err := u.orderRepo.CreateHistory(txCtx, &domain.OrderHistory{
			ID:        newEventID(),
			OrderID:   order.ID,
			NewStatus: order.Status,
			Event:     domain.HistoryEventCreated,
			CreatedBy: userID,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to record history: %w", err)
		}
		return u.cartRepo.Clear(txCtx, userID)
	})
	if err != nil {
		var ve *domain.VoucherError
		if errors.As(err, &ve) {
			u.metrics.VoucherRejected(ve.Kind)
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Checkout failed")
		return nil, err
	}

	u.metrics.OrderPlaced(order.PaymentMethod, order.Total)
	if voucher != nil {
		u.metrics.VoucherRedeemed(voucher.Code)
	}
	logger.OrderTransition(ctx, order.ID, order.InvoiceNo, domain.HistoryEventCreated, "", string(order.Status), userID)

	u.notifyCustomer(ctx, order, domain.TemplateOrderPlaced, map[string]any{
		"invoiceNo":     order.InvoiceNo,
		"total":         order.Total,
		"paymentMethod": string(order.PaymentMethod),
		"quoteRequest":  quote,
	})
	u.publisher.Publish(ctx, domain.TopicNewOrder, domain.OrderEvent{
		Event: domain.HistoryEventCreated,
		Actor: userID,
		Order: order.Summary(),
	})
	return order, nil
}

// QuoteResult prices the cart without side effects.
type QuoteResult struct {
	domain.PriceBreakdown
	Items        []domain.OrderItem      `json:"items"`
	CODAvailable bool                    `json:"codAvailable"`
	VoucherError domain.VoucherErrorKind `json:"voucherError,omitempty"`
}

func (u *OrderUsecase) Quote(ctx context.Context, userID, district, voucherCode string) (*QuoteResult, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := u.buildOrderItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.PriceLine, len(items))
	for i, it := range items {
		lines[i] = it.PriceLine()
	}

	res := &QuoteResult{Items: items}
	voucher, err := u.findVoucher(ctx, voucherCode)
	if err != nil {
		var ve *domain.VoucherError
		if !errors.As(err, &ve) {
			return nil, err
		}
		res.VoucherError = ve.Kind
	}

	res.PriceBreakdown = domain.CalculatePrice(lines, district, voucher, u.policy.Delivery, u.now())
	if res.PriceBreakdown.VoucherErr != nil {
		res.VoucherError = res.PriceBreakdown.VoucherErr.Kind
	}
	res.CODAvailable = domain.CODAllowed(user)
	return res, nil
}

// findVoucher returns nil for an empty code and a NotFound VoucherError for an
// unknown one.
func (u *OrderUsecase) findVoucher(ctx context.Context, code string) (*domain.Voucher, error) {
	code = domain.NormalizeVoucherCode(code)
	if code == "" {
		return nil, nil
	}
	v, err := u.voucherRepo.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.VoucherError{Kind: domain.VoucherNotFound, Code: code}
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (u *OrderUsecase) buildOrderItems(ctx context.Context, userID string) ([]domain.OrderItem, error) {
	cart, err := u.cartRepo.GetItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, domain.NewValidationError("cart", "cart is empty").WithCode(domain.ValidationEmptyCart)
	}

	ids := make([]string, 0, len(cart))
	seen := make(map[string]bool, len(cart))
	for _, ci := range cart {
		if !seen[ci.ProductID] {
			seen[ci.ProductID] = true
			ids = append(ids, ci.ProductID)
		}
	}
	products, err := u.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(cart))
	for _, ci := range cart {
		p, ok := products[ci.ProductID]
		if !ok || !p.IsActive {
			return nil, domain.NewValidationError("items", fmt.Sprintf("product %s is no longer available", ci.ProductID))
		}
		if ci.Quantity < 1 {
			return nil, domain.NewValidationError("items", "quantity must be at least 1")
		}
		custom := sanitizeCustomization(ci.Customization)
		if err := custom.Validate(); err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ID:            uuid.NewString(),
			ProductID:     p.ID,
			TitleEn:       p.TitleEn,
			TitleBn:       p.TitleBn,
			Category:      p.Category,
			Variant:       ci.Variant,
			Quantity:      ci.Quantity,
			UnitPrice:     p.Price,
			DiscountPrice: p.DiscountPrice,
			Customization: custom,
		})
	}
	return items, nil
}

func sanitizeAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		RecipientName: utils.SanitizeText(a.RecipientName),
		Phone:         utils.NormalizePhone(a.Phone),
		Division:      utils.SanitizeText(a.Division),
		District:      utils.SanitizeText(a.District),
		Upazila:       utils.SanitizeText(a.Upazila),
		Details:       utils.SanitizeText(a.Details),
	}
}

func sanitizeCustomization(c domain.Customization) domain.Customization {
	if c.Sketch != nil {
		s := *c.Sketch
		s.Size = strings.ToUpper(strings.TrimSpace(s.Size))
		s.Note = utils.SanitizeText(s.Note)
		c.Sketch = &s
	}
	if c.Craft != nil {
		cr := *c.Craft
		cr.CraftType = utils.SanitizeText(cr.CraftType)
		cr.CustomText = utils.SanitizeText(cr.CustomText)
		cr.Note = utils.SanitizeText(cr.Note)
		c.Craft = &cr
	}
	return c
}
