package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"rizqara-backend/internal/domain"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// SystemActor attributes webhook-driven changes, e.g. "system:sms".
func SystemActor(source string) Actor {
	return Actor{ID: "system:" + source, Role: domain.RoleAdmin}
}

func newInvoiceNo(now time.Time) string {
	id := ulid.Make().String()
	return "INV-" + now.Format("060102") + "-" + id[len(id)-8:]
}

func newEventID() string {
	return ulid.Make().String()
}

// OrderMetrics receives order engine counters. Implementations must be cheap and
// non-blocking.
type OrderMetrics interface {
	OrderPlaced(method domain.PaymentMethod, total float64)
	OrderTransition(event string, to domain.OrderStatus)
	VoucherRedeemed(code string)
	VoucherRejected(kind domain.VoucherErrorKind)
	Conflict(action string)
}

type noopMetrics struct{}

func (noopMetrics) OrderPlaced(domain.PaymentMethod, float64)  {}
func (noopMetrics) OrderTransition(string, domain.OrderStatus) {}
func (noopMetrics) VoucherRedeemed(string)                     {}
func (noopMetrics) VoucherRejected(domain.VoucherErrorKind)    {}
func (noopMetrics) Conflict(string)                            {}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, to domain.Recipient, template string, params map[string]any) {}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, topic string, payload any) {}
