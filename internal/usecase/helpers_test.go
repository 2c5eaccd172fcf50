package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/repository/memory"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var adminActor = Actor{ID: "admin-1", Role: domain.RoleAdmin}

func customer(id string) Actor { return Actor{ID: id, Role: domain.RoleCustomer} }

type stubCourier struct {
	mu       sync.Mutex
	booked   []domain.ShipmentRequest
	bookFn   func(req domain.ShipmentRequest) (*domain.Shipment, error)
	statusFn func(code string) (string, error)
}

func (c *stubCourier) BookShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.Shipment, error) {
	c.mu.Lock()
	c.booked = append(c.booked, req)
	c.mu.Unlock()
	if c.bookFn != nil {
		return c.bookFn(req)
	}
	return &domain.Shipment{TrackingCode: "TRK-" + req.Invoice, ConsignmentID: "C-1", Status: "in_review"}, nil
}

func (c *stubCourier) DeliveryStatus(ctx context.Context, code string) (string, error) {
	if c.statusFn != nil {
		return c.statusFn(code)
	}
	return "in_review", nil
}

func (c *stubCourier) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.booked)
}

type sentMessage struct {
	to       domain.Recipient
	template string
	params   map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Notify(ctx context.Context, to domain.Recipient, template string, params map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{to: to, template: template, params: params})
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.template
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

type fixture struct {
	orders    *memory.OrderRepo
	vouchers  *memory.VoucherRepo
	users     *memory.UserRepo
	products  *memory.ProductRepo
	carts     *memory.CartRepo
	courier   *stubCourier
	notifier  *recordingNotifier
	publisher *recordingPublisher
	uc        *OrderUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		orders:    memory.NewOrderRepo(store),
		vouchers:  memory.NewVoucherRepo(store),
		users:     memory.NewUserRepo(store),
		products:  memory.NewProductRepo(store),
		carts:     memory.NewCartRepo(store),
		courier:   &stubCourier{},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	f.uc = NewOrderUsecase(OrderDeps{
		Orders:    f.orders,
		Vouchers:  f.vouchers,
		Users:     f.users,
		Products:  f.products,
		Carts:     f.carts,
		Tx:        memory.NewTxManager(store),
		Courier:   f.courier,
		Notifier:  f.notifier,
		Publisher: f.publisher,
	}, OrderPolicy{
		Delivery:                domain.DeliveryRules{LowChargeDistricts: []string{"Dhaka", "Narayanganj", "Gazipur"}, LowFee: 60, HighFee: 120},
		AutoBanFailedDeliveries: 5,
		CourierTimeout:          time.Second,
		CourierNote:             "Premium Order",
	})
	f.uc.now = func() time.Time { return testNow }

	ctx := context.Background()
	require.NoError(t, f.products.Upsert(ctx, &domain.Product{ID: "sketch-a4", TitleEn: "Pencil Sketch A4", Category: "sketch", Price: 500, IsActive: true}))
	require.NoError(t, f.products.Upsert(ctx, &domain.Product{ID: "custom-craft", TitleEn: "Custom Craft", Category: "craft", Price: 0, IsActive: true}))
	require.NoError(t, f.products.Upsert(ctx, &domain.Product{ID: "retired", TitleEn: "Old Frame", Price: 300, IsActive: false}))
	return f
}

func (f *fixture) addUser(t *testing.T, id string, failedDeliveries int) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &domain.User{
		ID:               id,
		Name:             "Customer " + id,
		Email:            id + "@example.com",
		Role:             domain.RoleCustomer,
		FailedDeliveries: failedDeliveries,
		CreatedAt:        testNow,
	}))
}

func (f *fixture) addToCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	require.NoError(t, f.carts.AddItem(context.Background(), &domain.CartItem{
		ID:        fmt.Sprintf("%s-%s-%d", userID, productID, qty),
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   testNow,
	}))
}

func (f *fixture) addVoucher(t *testing.T, code string, minPurchase float64, limit *int) {
	t.Helper()
	require.NoError(t, f.vouchers.Create(context.Background(), &domain.Voucher{
		ID:          "v-" + code,
		Code:        code,
		Discount:    10,
		MinPurchase: minPurchase,
		MaxDiscount: 200,
		ValidUntil:  testNow.Add(24 * time.Hour),
		IsActive:    true,
		UsageLimit:  limit,
	}))
}

func dhakaAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		RecipientName: "Nusrat Jahan",
		Phone:         "+8801711000000",
		Division:      "Dhaka",
		District:      "Dhaka",
		Upazila:       "Dhanmondi",
		Details:       "House 12, Road 5",
	}
}

// placeCOD checks out a 1000 taka cash-on-delivery order for a fresh customer.
func (f *fixture) placeCOD(t *testing.T, userID string) *domain.Order {
	t.Helper()
	f.addUser(t, userID, 0)
	f.addToCart(t, userID, "sketch-a4", 2)
	order, err := f.uc.Checkout(context.Background(), userID, CheckoutRequest{
		ShippingAddress: dhakaAddress(),
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)
	return order
}

func asError[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.True(t, errors.As(err, &target), "expected %T, got %v", target, err)
	return target
}
