package domain

type OrderStatus string

// Fulfillment statuses
const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefundRequested OrderStatus = "refund-requested"
	OrderStatusRefunded        OrderStatus = "refunded"
)

type PaymentStatus string

// Payment Statuses
const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusFailed   PaymentStatus = "failed"
)

type PaymentMethod string

// Payment Methods
const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodBKash  PaymentMethod = "bkash"
	PaymentMethodNagad  PaymentMethod = "nagad"
	PaymentMethodRocket PaymentMethod = "rocket"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodBKash, PaymentMethodNagad, PaymentMethodRocket:
		return true
	}
	return false
}

// IsOnline reports whether the method is a mobile-wallet payment that needs a transaction ID.
func (m PaymentMethod) IsOnline() bool {
	return m.Valid() && m != PaymentMethodCOD
}

// Roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// History events
const (
	HistoryEventCreated         = "created"
	HistoryEventStatusChanged   = "status_changed"
	HistoryEventPaymentVerified = "payment_verified"
	HistoryEventPaymentRejected = "payment_rejected"
	HistoryEventPriceOverridden = "price_overridden"
	HistoryEventCourierBooked   = "courier_booked"
	HistoryEventDeliveryFailed  = "delivery_failed"
	HistoryEventRefundRequested = "refund_requested"
	HistoryEventRefundApproved  = "refund_approved"
	HistoryEventRefundRejected  = "refund_rejected"
)

// Realtime topics
const (
	TopicNewOrder     = "new_order"
	TopicOrderUpdated = "order_updated"
)

// Notification templates
const (
	TemplateOTP             = "otp"
	TemplateOrderPlaced     = "order_placed"
	TemplateOrderConfirmed  = "order_confirmed"
	TemplateOrderShipped    = "order_shipped"
	TemplateOrderDelivered  = "order_delivered"
	TemplateOrderCancelled  = "order_cancelled"
	TemplatePaymentVerified = "payment_verified"
	TemplatePaymentFailed   = "payment_failed"
	TemplateRefundRequested = "refund_requested"
	TemplateRefundApproved  = "refund_approved"
	TemplateRefundRejected  = "refund_rejected"
)

// List Exports for API
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefundRequested,
	OrderStatusRefunded,
}

var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusVerified,
	PaymentStatusFailed,
}

var PaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodBKash,
	PaymentMethodNagad,
	PaymentMethodRocket,
}
