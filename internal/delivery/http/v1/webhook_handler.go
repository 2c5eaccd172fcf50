package v1

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

const webhookTokenHeader = "X-Webhook-Token"

// WebhookHandler receives payment SMS forwarded from the shop's phone and parcel
// status callbacks from the courier. Each source has its own shared token.
type WebhookHandler struct {
	orderUC      *usecase.OrderUsecase
	smsToken     string
	courierToken string
}

func NewWebhookHandler(uc *usecase.OrderUsecase, smsToken, courierToken string) *WebhookHandler {
	return &WebhookHandler{orderUC: uc, smsToken: smsToken, courierToken: courierToken}
}

func tokenMatches(r *http.Request, want string) bool {
	if want == "" {
		return false
	}
	got := r.Header.Get(webhookTokenHeader)
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// decodeCallback tolerates unknown fields; third parties add them without notice.
func decodeCallback(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// POST /api/v1/webhooks/sms
func (h *WebhookHandler) PaymentSMS(w http.ResponseWriter, r *http.Request) {
	if !tokenMatches(r, h.smsToken) {
		unauthorized(w)
		return
	}
	var req struct {
		From string `json:"from,omitempty"`
		Text string `json:"text"`
	}
	if err := decodeCallback(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.orderUC.MatchPaymentSMS(r.Context(), req.Text)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if !res.Matched {
		logger.WithContext(r.Context()).Info().Str("from", req.From).Str("trx_id", res.TrxID).Str("reason", res.Reason).Msg("Payment SMS not matched")
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

// courierCallback covers the courier's delivery_status notification. Only one of
// tracking_code or invoice is required.
type courierCallback struct {
	NotificationType string `json:"notification_type"`
	Invoice          string `json:"invoice"`
	TrackingCode     string `json:"tracking_code"`
	Status           string `json:"status"`
}

// POST /api/v1/webhooks/courier
func (h *WebhookHandler) CourierStatus(w http.ResponseWriter, r *http.Request) {
	if !tokenMatches(r, h.courierToken) {
		unauthorized(w)
		return
	}
	var req courierCallback
	if err := decodeCallback(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.NotificationType != "" && req.NotificationType != "delivery_status" {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if req.Status == "" {
		utils.WriteError(w, http.StatusBadRequest, "status is required")
		return
	}

	code := req.TrackingCode
	if code == "" {
		if req.Invoice == "" {
			utils.WriteError(w, http.StatusBadRequest, "tracking_code or invoice is required")
			return
		}
		var err error
		if code, err = h.orderUC.TrackingCodeForInvoice(r.Context(), req.Invoice); err != nil {
			writeUsecaseError(w, r, err)
			return
		}
	}

	order, err := h.orderUC.RecordCourierOutcome(r.Context(), code, req.Status)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"orderStatus": order.Status,
	})
}
