package v1

import (
	"net/http"
	"time"

	"rizqara-backend/internal/delivery/http/middleware"
	"rizqara-backend/pkg/cache"
)

// Handlers groups everything RegisterRoutes mounts. Upload and WS are optional.
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Cart       *CartHandler
	Order      *OrderHandler
	AdminOrder *AdminOrderHandler
	Voucher    *VoucherHandler
	Catalog    *CatalogHandler
	Config     *ConfigHandler
	Stats      *AdminStatsHandler
	Webhook    *WebhookHandler
	Upload     *UploadHandler
	WS         *WSHandler
}

type RouteOptions struct {
	Metrics        middleware.HTTPObserver
	Idempotency    cache.CacheService
	IdempotencyTTL time.Duration
	// OTPLimiter, when set, throttles the OTP endpoints per client IP on top of
	// the global limiter.
	OTPLimiter *middleware.RateLimiter
}

// RegisterRoutes mounts the /api/v1 surface on mux. Each route is wrapped with the
// metrics middleware under its own pattern.
func RegisterRoutes(mux *http.ServeMux, h Handlers, opts RouteOptions) {
	handle := func(pattern string, handler http.Handler) {
		mux.Handle(pattern, middleware.Metrics(opts.Metrics, pattern)(handler))
	}
	public := func(pattern string, fn http.HandlerFunc) { handle(pattern, fn) }
	authed := func(pattern string, fn http.HandlerFunc) {
		handle(pattern, middleware.AuthMiddleware(fn))
	}
	admin := func(pattern string, fn http.HandlerFunc) {
		handle(pattern, middleware.AuthMiddleware(middleware.AdminMiddleware(fn)))
	}
	otp := func(pattern string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if opts.OTPLimiter != nil {
			handler = opts.OTPLimiter.Middleware()(handler)
		}
		handle(pattern, handler)
	}

	health := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	public("GET /api/v1/health", health)
	public("GET /health", health)

	// Public
	public("GET /api/v1/config/enums", h.Config.GetEnums)
	public("GET /api/v1/products", h.Catalog.ListProducts)
	otp("POST /api/v1/auth/otp/request", h.Auth.RequestOTP)
	otp("POST /api/v1/auth/otp/verify", h.Auth.VerifyOTP)
	public("POST /api/v1/auth/refresh", h.Auth.Refresh)
	public("POST /api/v1/auth/logout", h.Auth.Logout)
	public("POST /api/v1/vouchers/validate", h.Voucher.Validate)
	public("POST /api/v1/webhooks/sms", h.Webhook.PaymentSMS)
	public("POST /api/v1/webhooks/courier", h.Webhook.CourierStatus)

	// Customer
	authed("GET /api/v1/auth/me", h.Auth.Me)
	authed("PUT /api/v1/user/profile", h.User.UpdateProfile)
	authed("GET /api/v1/user/addresses", h.User.GetAddresses)
	authed("POST /api/v1/user/addresses", h.User.AddAddress)
	authed("DELETE /api/v1/user/addresses/{id}", h.User.DeleteAddress)
	authed("GET /api/v1/cart", h.Cart.GetCart)
	authed("POST /api/v1/cart", h.Cart.AddItem)
	authed("PUT /api/v1/cart/{itemId}", h.Cart.UpdateItem)
	authed("DELETE /api/v1/cart/{itemId}", h.Cart.RemoveItem)
	authed("POST /api/v1/cart/voucher", h.Cart.ApplyVoucher)
	authed("POST /api/v1/checkout/quote", h.Order.Quote)
	authed("GET /api/v1/orders", h.Order.GetMyOrders)
	authed("GET /api/v1/orders/{id}", h.Order.GetOrder)
	authed("POST /api/v1/orders/{id}/cancel", h.Order.CancelOrder)
	authed("POST /api/v1/orders/{id}/refund", h.Order.RequestRefund)

	var checkout http.Handler = http.HandlerFunc(h.Order.CreateOrder)
	if opts.Idempotency != nil {
		checkout = middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL)(checkout)
	}
	handle("POST /api/v1/orders", middleware.AuthMiddleware(checkout))

	if h.Upload != nil {
		authed("POST /api/v1/upload", h.Upload.UploadFile)
	}

	// Admin
	admin("GET /api/v1/admin/orders", h.AdminOrder.ListOrders)
	admin("GET /api/v1/admin/orders/{id}", h.AdminOrder.GetOrder)
	admin("GET /api/v1/admin/orders/{id}/history", h.AdminOrder.GetHistory)
	admin("PATCH /api/v1/orders/{id}/status", h.AdminOrder.UpdateStatus)
	admin("POST /api/v1/orders/{id}/payment-verification", h.AdminOrder.VerifyPayment)
	admin("POST /api/v1/admin/orders/{id}/shipment", h.AdminOrder.BookShipment)
	admin("POST /api/v1/admin/orders/{id}/courier-sync", h.AdminOrder.SyncCourier)
	admin("POST /api/v1/admin/orders/{id}/refund", h.AdminOrder.ProcessRefund)
	admin("PATCH /api/v1/admin/orders/{id}/price", h.AdminOrder.OverridePrice)
	admin("DELETE /api/v1/admin/orders/{id}", h.AdminOrder.DeleteOrder)

	admin("GET /api/v1/admin/vouchers", h.Voucher.List)
	admin("POST /api/v1/admin/vouchers", h.Voucher.Create)
	admin("GET /api/v1/admin/vouchers/{id}", h.Voucher.Get)
	admin("PUT /api/v1/admin/vouchers/{id}", h.Voucher.Update)
	admin("DELETE /api/v1/admin/vouchers/{id}", h.Voucher.Delete)

	admin("GET /api/v1/admin/users", h.User.ListUsers)
	admin("POST /api/v1/admin/users/{id}/ban", h.User.Ban)
	admin("POST /api/v1/admin/users/{id}/unban", h.User.Unban)
	admin("PUT /api/v1/admin/products/{id}", h.Catalog.UpsertProduct)
	admin("GET /api/v1/admin/stats/orders", h.Stats.GetOrderStats)

	if h.WS != nil {
		// The upgrade hijacks the connection, so the route skips the metrics wrapper.
		mux.Handle("GET /api/v1/admin/ws", middleware.AuthMiddleware(middleware.AdminMiddleware(http.HandlerFunc(h.WS.Connect))))
	}
}
