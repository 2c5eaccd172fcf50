package facebook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
)

const graphURL = "https://graph.facebook.com"

// HashSHA256 returns a hex-encoded SHA256 hash of the normalized input string.
func HashSHA256(input string) string {
	if input == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// normalizePhone turns a local 01XXXXXXXXX number into the country-coded digits Meta expects.
func normalizePhone(phone string) string {
	if strings.HasPrefix(phone, "01") && len(phone) == 11 {
		return "88" + phone
	}
	return phone
}

// CAPIClient handles server-side event tracking to Facebook Conversions API
type CAPIClient struct {
	baseURL     string
	pixelID     string
	accessToken string
	apiVersion  string
	testCode    string
	httpClient  *http.Client
	backoff     time.Duration
}

// NewCAPIClient returns nil when the pixel is not configured; a nil client is a no-op.
func NewCAPIClient(pixelID, accessToken, apiVersion, testCode string) *CAPIClient {
	if pixelID == "" || accessToken == "" {
		logger.Info().Msg("Facebook Pixel ID or access token not configured, CAPI disabled")
		return nil
	}
	return &CAPIClient{
		baseURL:     graphURL,
		pixelID:     pixelID,
		accessToken: accessToken,
		apiVersion:  apiVersion,
		testCode:    testCode,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		backoff:     time.Second,
	}
}

// UserData represents the user information for event matching
type UserData struct {
	Phone      string `json:"ph,omitempty"` // SHA256
	FirstName  string `json:"fn,omitempty"` // SHA256
	City       string `json:"ct,omitempty"` // SHA256
	State      string `json:"st,omitempty"` // SHA256
	Country    string `json:"country,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// CustomData represents purchase-specific data
type CustomData struct {
	Currency   string        `json:"currency,omitempty"`
	Value      float64       `json:"value,omitempty"`
	ContentIDs []string      `json:"content_ids,omitempty"`
	Contents   []ContentItem `json:"contents,omitempty"`
	NumItems   int           `json:"num_items,omitempty"`
	OrderID    string        `json:"order_id,omitempty"`
}

// ContentItem represents individual product in the order
type ContentItem struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"item_price,omitempty"`
}

// Event represents a single CAPI event
type Event struct {
	EventName    string     `json:"event_name"`
	EventTime    int64      `json:"event_time"`
	ActionSource string     `json:"action_source"`
	UserData     UserData   `json:"user_data"`
	CustomData   CustomData `json:"custom_data,omitempty"`
	EventID      string     `json:"event_id,omitempty"` // deduplicates with the browser pixel
}

type eventPayload struct {
	Data     []Event `json:"data"`
	TestCode string  `json:"test_event_code,omitempty"`
}

// SendEvent posts one event, retrying transport errors, 429s and 5xx responses.
func (c *CAPIClient) SendEvent(ctx context.Context, event Event) error {
	if c == nil {
		return nil
	}
	body, err := json.Marshal(eventPayload{Data: []Event{event}, TestCode: c.testCode})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.baseURL, c.apiVersion, c.pixelID, url.QueryEscape(c.accessToken))

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		retry, err := c.post(ctx, endpoint, body)
		if err == nil {
			logger.WithContext(ctx).Debug().Str("event", event.EventName).Str("event_id", event.EventID).Msg("CAPI event sent")
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return &domain.ExternalServiceError{Service: "facebook-capi", Err: lastErr}
}

func (c *CAPIClient) post(ctx context.Context, endpoint string, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("CAPI request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return false, nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("CAPI error (status %d): %s", resp.StatusCode, msg)
	// 4xx other than 429 is a payload problem and will not improve on retry.
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
}

// PurchaseEvent builds a Purchase event for a placed order. The invoice number
// doubles as the browser pixel's event id.
func PurchaseEvent(order *domain.Order) Event {
	items := make([]ContentItem, 0, len(order.Items))
	ids := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, ContentItem{ID: it.ProductID, Quantity: it.Quantity, Price: it.PriceLine().EffectiveUnitPrice()})
		ids = append(ids, it.ProductID)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(order.ShippingAddress.RecipientName), " ")
	return Event{
		EventName:    "Purchase",
		EventTime:    order.CreatedAt.Unix(),
		ActionSource: "website",
		UserData: UserData{
			Phone:      HashSHA256(normalizePhone(order.ShippingAddress.Phone)),
			FirstName:  HashSHA256(first),
			City:       HashSHA256(order.ShippingAddress.District),
			State:      HashSHA256(order.ShippingAddress.Division),
			Country:    HashSHA256("bd"),
			ExternalID: HashSHA256(order.UserID),
		},
		CustomData: CustomData{
			Currency:   "BDT",
			Value:      order.Total,
			OrderID:    order.InvoiceNo,
			Contents:   items,
			ContentIDs: ids,
			NumItems:   len(items),
		},
		EventID: order.InvoiceNo,
	}
}

// OrderLookup loads the full order behind an event summary.
type OrderLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// PurchaseSink is an EventPublisher that forwards new orders to the Conversions
// API. Sending happens off the request path and failures are only logged.
type PurchaseSink struct {
	client *CAPIClient
	orders OrderLookup
	sent   func(err error) // test hook
}

func NewPurchaseSink(client *CAPIClient, orders OrderLookup) *PurchaseSink {
	return &PurchaseSink{client: client, orders: orders}
}

func (s *PurchaseSink) Publish(ctx context.Context, topic string, payload any) {
	if s == nil || s.client == nil || topic != domain.TopicNewOrder {
		return
	}
	ev, ok := payload.(domain.OrderEvent)
	if !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		err := s.forward(ctx, ev.Order.ID)
		if err != nil {
			logger.WithContext(ctx).Warn().Err(err).Str("order_id", ev.Order.ID).Msg("CAPI purchase event failed")
		}
		if s.sent != nil {
			s.sent(err)
		}
	}()
}

func (s *PurchaseSink) forward(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.IsQuoteRequest() {
		return nil
	}
	return s.client.SendEvent(ctx, PurchaseEvent(order))
}
