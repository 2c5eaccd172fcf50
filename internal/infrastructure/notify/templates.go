package notify

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"rizqara-backend/internal/domain"
)

// Message is a rendered notification in both storefront languages.
type Message struct {
	Template  string
	SubjectEn string
	SubjectBn string
	BodyEn    string
	BodyBn    string
}

// Subject is the bilingual email subject line.
func (m Message) Subject() string {
	if m.SubjectBn == "" || m.SubjectBn == m.SubjectEn {
		return m.SubjectEn
	}
	return m.SubjectEn + " | " + m.SubjectBn
}

// Text is the plain-text body, English first.
func (m Message) Text() string {
	if m.BodyBn == "" {
		return m.BodyEn
	}
	return m.BodyEn + "\n\n" + m.BodyBn
}

type template struct {
	subject string
	body    string
	// args picks the positional arguments for body from the params map.
	args func(p params) []any
}

type params map[string]any

func (p params) str(key string) string {
	if v, ok := p[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func (p params) num(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func nameInvoice(p params) []any { return []any{p.str("name"), p.str("invoiceNo")} }
func nameInvoiceTotal(p params) []any { return []any{p.str("name"), p.str("invoiceNo"), p.num("total")} }

var templates = map[string]template{
	domain.TemplateOTP: {
		subject: "Your RizQara login code",
		body:    "Your login code is %s. It expires in %d minutes.",
		args:    func(p params) []any { return []any{p.str("code"), int(p.num("minutes"))} },
	},
	domain.TemplateOrderPlaced: {
		subject: "Order received",
		body:    "Hi %s, we received your order %s. Total: Tk %.2f.",
		args:    nameInvoiceTotal,
	},
	domain.TemplateOrderConfirmed: {
		subject: "Order confirmed",
		body:    "Hi %s, your order %s has been confirmed.",
		args:    nameInvoice,
	},
	domain.TemplateOrderShipped: {
		subject: "Order shipped",
		body:    "Hi %s, your order %s is on its way. Tracking code: %s.",
		args:    func(p params) []any { return []any{p.str("name"), p.str("invoiceNo"), p.str("trackingCode")} },
	},
	domain.TemplateOrderDelivered: {
		subject: "Order delivered",
		body:    "Hi %s, your order %s has been delivered. Thank you for shopping with us.",
		args:    nameInvoice,
	},
	domain.TemplateOrderCancelled: {
		subject: "Order cancelled",
		body:    "Hi %s, your order %s was cancelled. Reason: %s.",
		args:    func(p params) []any { return []any{p.str("name"), p.str("invoiceNo"), p.str("reason")} },
	},
	domain.TemplatePaymentVerified: {
		subject: "Payment verified",
		body:    "Hi %s, your payment for order %s (Tk %.2f) has been verified.",
		args:    nameInvoiceTotal,
	},
	domain.TemplatePaymentFailed: {
		subject: "Payment could not be verified",
		body:    "Hi %s, we could not verify the payment for order %s. Please contact us.",
		args:    nameInvoice,
	},
	domain.TemplateRefundRequested: {
		subject: "Refund requested",
		body:    "Hi %s, we received your refund request for order %s.",
		args:    nameInvoice,
	},
	domain.TemplateRefundApproved: {
		subject: "Refund approved",
		body:    "Hi %s, the refund for order %s (Tk %.2f) has been sent.",
		args:    nameInvoiceTotal,
	},
	domain.TemplateRefundRejected: {
		subject: "Refund declined",
		body:    "Hi %s, the refund request for order %s was declined.",
		args:    nameInvoice,
	},
}

// bengali translates the English format strings above.
var bengali = [][2]string{
	{"Your RizQara login code", "আপনার রিজকারা লগইন কোড"},
	{"Your login code is %s. It expires in %d minutes.", "আপনার লগইন কোড %s। এটি %d মিনিটের মধ্যে মেয়াদোত্তীর্ণ হবে।"},
	{"Order received", "অর্ডার গ্রহণ করা হয়েছে"},
	{"Hi %s, we received your order %s. Total: Tk %.2f.", "প্রিয় %s, আপনার অর্ডার %s গ্রহণ করা হয়েছে। মোট: ৳%.2f।"},
	{"Order confirmed", "অর্ডার নিশ্চিত হয়েছে"},
	{"Hi %s, your order %s has been confirmed.", "প্রিয় %s, আপনার অর্ডার %s নিশ্চিত করা হয়েছে।"},
	{"Order shipped", "অর্ডার পাঠানো হয়েছে"},
	{"Hi %s, your order %s is on its way. Tracking code: %s.", "প্রিয় %s, আপনার অর্ডার %s পাঠানো হয়েছে। ট্র্যাকিং কোড: %s।"},
	{"Order delivered", "অর্ডার ডেলিভারি হয়েছে"},
	{"Order cancelled", "অর্ডার বাতিল হয়েছে"},
	{"Hi %s, your order %s was cancelled. Reason: %s.", "প্রিয় %s, আপনার অর্ডার %s বাতিল করা হয়েছে। কারণ: %s।"},
	{"Payment verified", "পেমেন্ট যাচাই হয়েছে"},
	{"Payment could not be verified", "পেমেন্ট যাচাই করা যায়নি"},
	{"Refund requested", "রিফান্ড অনুরোধ"},
	{"Refund approved", "রিফান্ড অনুমোদিত"},
	{"Refund declined", "রিফান্ড প্রত্যাখ্যাত"},
	{"Hi %s, we received your refund request for order %s.", "প্রিয় %s, অর্ডার %s এর রিফান্ড অনুরোধ পেয়েছি।"},
	{"Hi %s, the refund request for order %s was declined.", "প্রিয় %s, অর্ডার %s এর রিফান্ড অনুরোধ গ্রহণ করা হয়নি।"},
	{"Hi %s, the refund for order %s (Tk %.2f) has been sent.", "প্রিয় %s, অর্ডার %s এর রিফান্ড (৳%.2f) পাঠানো হয়েছে।"},
	{"Hi %s, your order %s has been delivered. Thank you for shopping with us.", "প্রিয় %s, আপনার অর্ডার %s ডেলিভারি হয়েছে। আমাদের সাথে কেনাকাটার জন্য ধন্যবাদ।"},
	{"Hi %s, your payment for order %s (Tk %.2f) has been verified.", "প্রিয় %s, অর্ডার %s এর পেমেন্ট (৳%.2f) যাচাই করা হয়েছে।"},
	{"Hi %s, we could not verify the payment for order %s. Please contact us.", "প্রিয় %s, অর্ডার %s এর পেমেন্ট যাচাই করা যায়নি। অনুগ্রহ করে যোগাযোগ করুন।"},
}

// Renderer formats templates with an x/text catalog so amounts get locale grouping.
type Renderer struct {
	en *message.Printer
	bn *message.Printer
}

func NewRenderer() *Renderer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, kv := range bengali {
		_ = b.SetString(language.Bengali, kv[0], kv[1])
	}
	return &Renderer{
		en: message.NewPrinter(language.English, message.Catalog(b)),
		bn: message.NewPrinter(language.Bengali, message.Catalog(b)),
	}
}

// Render returns an error for unknown template names.
func (r *Renderer) Render(name string, p map[string]any) (Message, error) {
	t, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification template %q", name)
	}
	args := t.args(params(p))
	return Message{
		Template:  name,
		SubjectEn: r.en.Sprintf(t.subject),
		SubjectBn: r.bn.Sprintf(t.subject),
		BodyEn:    strings.TrimSpace(r.en.Sprintf(t.body, args...)),
		BodyBn:    strings.TrimSpace(r.bn.Sprintf(t.body, args...)),
	}, nil
}
