package v1

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rizqara-backend/internal/domain"
	infracache "rizqara-backend/internal/infrastructure/cache"
	"rizqara-backend/internal/repository/memory"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

const (
	smsToken     = "sms-token"
	courierToken = "courier-token"
)

type stubCourier struct {
	mu      sync.Mutex
	bookErr error
	status  string
}

func (c *stubCourier) BookShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.Shipment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bookErr != nil {
		return nil, c.bookErr
	}
	return &domain.Shipment{TrackingCode: "TRK-" + req.Invoice, ConsignmentID: "1001", Status: "in_review"}, nil
}

func (c *stubCourier) DeliveryStatus(ctx context.Context, code string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, nil
}

type memFiles struct {
	uploads []string
}

func (m *memFiles) Upload(ctx context.Context, data []byte, contentType, folder string) (string, error) {
	url := "https://cdn.example.com/" + folder + "/file"
	m.uploads = append(m.uploads, contentType)
	return url, nil
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	users    *memory.UserRepo
	products *memory.ProductRepo
	vouchers *memory.VoucherRepo
	orders   *memory.OrderRepo
	courier  *stubCourier
	files    *memFiles
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	utils.SetSecret("handler-secret")

	store := memory.NewStore()
	c := infracache.NewMemoryCache(time.Minute, time.Minute)
	s := &testServer{
		t:        t,
		users:    memory.NewUserRepo(store),
		products: memory.NewProductRepo(store),
		vouchers: memory.NewVoucherRepo(store),
		orders:   memory.NewOrderRepo(store),
		courier:  &stubCourier{status: "in_review"},
		files:    &memFiles{},
	}
	carts := memory.NewCartRepo(store)
	delivery := domain.DeliveryRules{LowChargeDistricts: []string{"Dhaka"}, LowFee: 60, HighFee: 120}

	orderUC := usecase.NewOrderUsecase(usecase.OrderDeps{
		Orders:   s.orders,
		Vouchers: s.vouchers,
		Users:    s.users,
		Products: s.products,
		Carts:    carts,
		Tx:       memory.NewTxManager(store),
		Courier:  s.courier,
	}, usecase.OrderPolicy{Delivery: delivery, AutoBanFailedDeliveries: 5, CourierTimeout: time.Second})
	voucherUC := usecase.NewVoucherUsecase(s.vouchers, carts, s.products, c)

	mux := http.NewServeMux()
	RegisterRoutes(mux, Handlers{
		Auth:       NewAuthHandler(usecase.NewAuthUsecase(s.users, c, nil, usecase.AuthPolicy{AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour}), time.Hour, false),
		User:       NewUserHandler(usecase.NewUserUsecase(s.users)),
		Cart:       NewCartHandler(usecase.NewCartUsecase(carts, s.products, 10), voucherUC),
		Order:      NewOrderHandler(orderUC),
		AdminOrder: NewAdminOrderHandler(orderUC),
		Voucher:    NewVoucherHandler(voucherUC),
		Catalog:    NewCatalogHandler(usecase.NewCatalogUsecase(s.products, c)),
		Config:     NewConfigHandler(c, delivery),
		Stats:      NewAdminStatsHandler(usecase.NewStatsUsecase(s.orders, c, time.Minute)),
		Webhook:    NewWebhookHandler(orderUC, smsToken, courierToken),
		Upload:     NewUploadHandler(s.files, 5),
	}, RouteOptions{Idempotency: c, IdempotencyTTL: time.Hour})
	s.handler = mux

	ctx := context.Background()
	require.NoError(t, s.products.Upsert(ctx, &domain.Product{ID: "sketch-a4", TitleEn: "Pencil Sketch A4", Category: "sketch", Price: 500, IsActive: true}))
	require.NoError(t, s.users.Create(ctx, &domain.User{ID: "admin-1", Email: "admin@rizqara.com", Role: domain.RoleAdmin}))
	return s
}

func (s *testServer) customer(id string) string {
	s.t.Helper()
	require.NoError(s.t, s.users.Create(context.Background(), &domain.User{ID: id, Name: "Customer " + id, Email: id + "@example.com", Role: domain.RoleCustomer}))
	return s.token(id, domain.RoleCustomer)
}

func (s *testServer) token(id, role string) string {
	tok, err := utils.GenerateJWT(id, id+"@example.com", role, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) admin() string { return s.token("admin-1", domain.RoleAdmin) }

func (s *testServer) do(method, path, token string, body any, header ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var dhaka = domain.ShippingAddress{
	RecipientName: "Nusrat Jahan",
	Phone:         "01711000000",
	Division:      "Dhaka",
	District:      "Dhaka",
	Upazila:       "Dhanmondi",
	Details:       "House 12, Road 5",
}

// placeOrder fills the cart with two A4 sketches and checks out.
func (s *testServer) placeOrder(token string, method domain.PaymentMethod, trxID string) domain.Order {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/cart", token, usecase.AddCartItemRequest{ProductID: "sketch-a4", Quantity: 2})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/orders", token, usecase.CheckoutRequest{
		ShippingAddress: dhaka,
		PaymentMethod:   method,
		PaymentTrxID:    trxID,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Order](s.t, rec)
}

func TestCheckoutAndIdempotentReplay(t *testing.T) {
	s := newTestServer(t)
	tok := s.customer("c1")

	rec := s.do(http.MethodPost, "/api/v1/cart", tok, usecase.AddCartItemRequest{ProductID: "sketch-a4", Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	body := usecase.CheckoutRequest{ShippingAddress: dhaka, PaymentMethod: domain.PaymentMethodCOD}
	first := s.do(http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "checkout-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	order := decode[domain.Order](t, first)
	assert.Equal(t, 1060.0, order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	// The cart is empty now, so only a replay can produce a second 201.
	second := s.do(http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "checkout-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, order.ID, decode[domain.Order](t, second).ID)

	rec = s.do(http.MethodPost, "/api/v1/orders", tok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mine := decode[[]domain.Order](t, s.do(http.MethodGet, "/api/v1/orders", tok, nil))
	assert.Len(t, mine, 1)
}

func TestRoutesRequireAuthAndAdmin(t *testing.T) {
	s := newTestServer(t)
	tok := s.customer("c1")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/orders", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/orders", tok, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/orders", s.admin(), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code)
}

func TestCustomerCannotReadAnotherCustomersOrder(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(s.customer("c1"), domain.PaymentMethodCOD, "")

	rec := s.do(http.MethodGet, "/api/v1/orders/"+order.ID, s.customer("c2"), nil)
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, rec.Code)
}

func TestVoucherErrorIsLocalized(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/vouchers/validate", "", map[string]any{"code": "NOPE", "subtotal": 1000}, "Accept-Language", "bn-BD,bn;q=0.9")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "NotFound", body["code"])
	assert.Equal(t, "ভাউচার কোডটি সঠিক নয়", body["error"])

	require.NoError(t, s.vouchers.Create(context.Background(), &domain.Voucher{
		ID: "v1", Code: "EID25", Discount: 25, MinPurchase: 500, MaxDiscount: 300,
		ValidUntil: time.Now().Add(24 * time.Hour), IsActive: true,
	}))
	rec = s.do(http.MethodPost, "/api/v1/vouchers/validate", "", map[string]any{"code": "eid25", "subtotal": 400})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, "Minimum purchase of Tk 500 required", body["error"])
	assert.Equal(t, 500.0, body["minPurchase"])

	rec = s.do(http.MethodPost, "/api/v1/vouchers/validate", "", map[string]any{"code": "EID25", "subtotal": 2000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 300.0, decode[usecase.VoucherQuote](t, rec).Discount)
}

func TestValidationErrorIsLocalized(t *testing.T) {
	s := newTestServer(t)
	tok := s.customer("c1")
	body := usecase.CheckoutRequest{ShippingAddress: dhaka, PaymentMethod: domain.PaymentMethodCOD}

	rec := s.do(http.MethodPost, "/api/v1/orders", tok, body, "Accept-Language", "bn-BD,bn;q=0.9")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "আপনার কার্ট খালি", got["error"])
	assert.Equal(t, "EmptyCart", got["code"])
	assert.Equal(t, "cart", got["field"])

	rec = s.do(http.MethodPost, "/api/v1/orders", tok, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got = decode[map[string]any](t, rec)
	assert.Equal(t, "cart: cart is empty", got["error"])
	assert.Equal(t, "EmptyCart", got["code"])
}

func TestValidationMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *domain.ValidationError
		loc  string
		want string
	}{
		{"code wins over field", domain.NewValidationError("paymentMethod", "cash on delivery is not available").WithCode(domain.ValidationCODUnavailable), "bn", validationMessages[domain.ValidationCODUnavailable]},
		{"field fallback", domain.NewValidationError("shippingAddress.district", "required"), "bn", "জেলা নির্বাচন করুন"},
		{"untranslated field keeps english", domain.NewValidationError("paymentMethod", `unsupported payment method "card"`), "bn", `paymentMethod: unsupported payment method "card"`},
		{"english", domain.NewValidationError("cart", "cart is empty").WithCode(domain.ValidationEmptyCart), "en", "cart: cart is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validationMessage(tt.err, tt.loc))
		})
	}
}

func TestAdminStatusUpdateAndConflicts(t *testing.T) {
	s := newTestServer(t)
	tok := s.customer("c1")

	online := s.placeOrder(tok, domain.PaymentMethodBKash, "9AB3XK2P")
	rec := s.do(http.MethodPatch, "/api/v1/orders/"+online.ID+"/status", s.admin(), usecase.StatusUpdate{Status: domain.OrderStatusConfirmed})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "pending", decode[map[string]any](t, rec)["currentStatus"])

	cod := s.placeOrder(tok, domain.PaymentMethodCOD, "")
	stale := int64(0)
	rec = s.do(http.MethodPatch, "/api/v1/orders/"+cod.ID+"/status", s.admin(), usecase.StatusUpdate{Status: domain.OrderStatusConfirmed, ExpectedVersion: &stale})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1.0, decode[map[string]any](t, rec)["currentVersion"])

	rec = s.do(http.MethodPatch, "/api/v1/orders/"+cod.ID+"/status", s.admin(), usecase.StatusUpdate{Status: domain.OrderStatusConfirmed, ExpectedVersion: &cod.Version})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderStatusConfirmed, decode[domain.Order](t, rec).Status)

	history := decode[[]domain.OrderHistory](t, s.do(http.MethodGet, "/api/v1/admin/orders/"+cod.ID+"/history", s.admin(), nil))
	assert.Len(t, history, 2)

	rec = s.do(http.MethodPatch, "/api/v1/orders/"+cod.ID+"/status", s.admin(), usecase.StatusUpdate{Status: "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefundHonoursExpectedVersion(t *testing.T) {
	s := newTestServer(t)
	tok := s.customer("c1")
	order := s.placeOrder(tok, domain.PaymentMethodCOD, "")

	var delivered domain.Order
	for _, status := range []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		rec := s.do(http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", s.admin(), usecase.StatusUpdate{Status: status})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		delivered = decode[domain.Order](t, rec)
	}

	rec := s.do(http.MethodPost, "/api/v1/orders/"+order.ID+"/refund", tok, map[string]any{
		"reason": "frame arrived cracked", "expectedVersion": delivered.Version - 1,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/orders/"+order.ID+"/refund", tok, map[string]any{
		"reason": "frame arrived cracked", "expectedVersion": delivered.Version,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requested := decode[domain.Order](t, rec)

	rec = s.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/refund", s.admin(), map[string]any{
		"approve": true, "refundPaymentNumber": "01711000000", "expectedVersion": delivered.Version,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, float64(requested.Version), decode[map[string]any](t, rec)["currentVersion"])

	rec = s.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/refund", s.admin(), map[string]any{
		"approve": true, "refundPaymentNumber": "01711000000", "expectedVersion": requested.Version,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderStatusRefunded, decode[domain.Order](t, rec).Status)
}

func TestShipmentCourierFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(s.customer("c1"), domain.PaymentMethodCOD, "")
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", s.admin(), usecase.StatusUpdate{Status: domain.OrderStatusConfirmed}).Code)

	s.courier.bookErr = &domain.ExternalServiceError{Service: "steadfast", Err: errors.New("timeout")}
	rec := s.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/shipment", s.admin(), map[string]string{"note": "fragile"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "steadfast", decode[map[string]any](t, rec)["service"])

	s.courier.bookErr = nil
	rec = s.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/shipment", s.admin(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shipped := decode[domain.Order](t, rec)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.TrackingCode)
}

func TestPaymentSMSWebhook(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(s.customer("c1"), domain.PaymentMethodBKash, "9ab3xk2p")
	sms := map[string]string{"from": "bKash", "text": "You have received Tk 1,060.00 from 01711000000. TrxID 9AB3XK2P at 01/03/2026 18:04", "sim": "1"}

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/webhooks/sms", "", sms).Code)

	rec := s.do(http.MethodPost, "/api/v1/webhooks/sms", "", sms, "X-Webhook-Token", smsToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[usecase.SMSMatchResult](t, rec)
	assert.True(t, res.Matched)

	got, err := s.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusVerified, got.PaymentStatus)
}

func TestCourierWebhookByInvoice(t *testing.T) {
	s := newTestServer(t)
	order := s.placeOrder(s.customer("c1"), domain.PaymentMethodCOD, "")
	admin := s.admin()
	require.Equal(t, http.StatusOK, s.do(http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", admin, usecase.StatusUpdate{Status: domain.OrderStatusConfirmed}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/admin/orders/"+order.ID+"/shipment", admin, nil).Code)

	callback := map[string]any{
		"notification_type": "delivery_status",
		"consignment_id":    1001,
		"invoice":           order.InvoiceNo,
		"status":            "delivered",
		"cod_amount":        1060,
	}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/webhooks/courier", "", callback, "X-Webhook-Token", "wrong").Code)

	rec := s.do(http.MethodPost, "/api/v1/webhooks/courier", "", callback, "X-Webhook-Token", courierToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "delivered", decode[map[string]any](t, rec)["orderStatus"])

	got, err := s.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusVerified, got.PaymentStatus)
}

func TestEnumsAndStats(t *testing.T) {
	s := newTestServer(t)

	enums := decode[map[string]any](t, s.do(http.MethodGet, "/api/v1/config/enums", "", nil))
	assert.Contains(t, enums, "orderStatuses")
	assert.Equal(t, []any{"A5", "A4", "A3", "A2"}, enums["sketchSizes"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/admin/stats/orders?start=yesterday", s.admin(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/admin/stats/orders?start=2026-02-01&end=2026-01-01", s.admin(), nil).Code)

	s.placeOrder(s.customer("c1"), domain.PaymentMethodCOD, "")
	rec := s.do(http.MethodGet, "/api/v1/admin/stats/orders", s.admin(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[usecase.OrderStats](t, rec)
	assert.Equal(t, int64(1), stats.StatusCounts[domain.OrderStatusPending])
}

func multipartImage(t *testing.T, folder string) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 20, 20))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("folder", folder))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="receipt.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)
	tok := s.customer("c1")

	send := func(folder, token string) *httptest.ResponseRecorder {
		body, contentType := multipartImage(t, folder)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := send("payments", tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(decode[map[string]string](t, rec)["url"], "https://cdn.example.com/payments/"))
	require.Len(t, s.files.uploads, 1)
	assert.NotEqual(t, "image/png", s.files.uploads[0])

	assert.Equal(t, http.StatusBadRequest, send("products", tok).Code)
	assert.Equal(t, http.StatusCreated, send("products", s.admin()).Code)
}

func TestWriteUsecaseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("phone", "required"), http.StatusBadRequest},
		{"voucher", &domain.VoucherError{Kind: domain.VoucherExpired, Code: "X"}, http.StatusUnprocessableEntity},
		{"transition", &domain.StateTransitionError{OrderID: "o", From: domain.OrderStatusDelivered, To: domain.OrderStatusCancelled}, http.StatusConflict},
		{"conflict", &domain.ConflictError{OrderID: "o", CurrentVersion: 3}, http.StatusConflict},
		{"external", &domain.ExternalServiceError{Service: "steadfast", Err: errors.New("down")}, http.StatusBadGateway},
		{"wrapped not found", errors.Join(errors.New("order o"), domain.ErrNotFound), http.StatusNotFound},
		{"banned", domain.ErrUserBanned, http.StatusForbidden},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"throttled", domain.ErrTooManyRequests, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeUsecaseError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLocale(t *testing.T) {
	for header, want := range map[string]string{
		"":                "en",
		"bn":              "bn",
		"bn-BD,en;q=0.5":  "bn",
		"en-US,bn;q=0.5":  "en",
		"fr-FR":           "en",
		"not a language!": "en",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", header)
		assert.Equal(t, want, locale(req), header)
	}
}
