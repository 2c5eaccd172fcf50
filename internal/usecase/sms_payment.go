package usecase

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
)

var (
	trxIDPattern  = regexp.MustCompile(`(?i)(?:TrxID|TxnID|TxnId)[ :]+([A-Z0-9]+)`)
	amountPattern = regexp.MustCompile(`(?i)(?:Tk|BDT|taka)[ :]+([0-9,.]+)`)
)

// PaymentSMS is what a forwarded bKash/Nagad/Rocket confirmation SMS yields.
type PaymentSMS struct {
	TrxID  string
	Amount float64 // 0 when the message carries no amount
}

// ParsePaymentSMS extracts the transaction ID and amount from a wallet SMS.
func ParsePaymentSMS(text string) (PaymentSMS, bool) {
	m := trxIDPattern.FindStringSubmatch(text)
	if m == nil {
		return PaymentSMS{}, false
	}
	sms := PaymentSMS{TrxID: strings.ToUpper(m[1])}
	if a := amountPattern.FindStringSubmatch(text); a != nil {
		raw := strings.TrimRight(strings.ReplaceAll(a[1], ",", ""), ".")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			sms.Amount = v
		}
	}
	return sms, true
}

type SMSMatchResult struct {
	Matched bool          `json:"matched"`
	TrxID   string        `json:"trxId,omitempty"`
	Amount  float64       `json:"amount,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Order   *domain.Order `json:"order,omitempty"`
}

// MatchPaymentSMS verifies the pending order whose transaction ID appears in the
// message. Unknown IDs and short payments are reported, not treated as errors.
func (u *OrderUsecase) MatchPaymentSMS(ctx context.Context, text string) (*SMSMatchResult, error) {
	sms, ok := ParsePaymentSMS(text)
	if !ok {
		return &SMSMatchResult{Reason: "no transaction id in message"}, nil
	}
	res := &SMSMatchResult{TrxID: sms.TrxID, Amount: sms.Amount}

	order, err := u.orderRepo.FindPendingPaymentByTrxID(ctx, sms.TrxID)
	if errors.Is(err, domain.ErrNotFound) {
		res.Reason = "no pending order with this transaction id"
		logger.WithContext(ctx).Info().Str("trx_id", sms.TrxID).Msg("Unmatched payment SMS")
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	if sms.Amount <= 0 {
		res.Reason = "no amount in message"
		logger.WithContext(ctx).Warn().
			Str("trx_id", sms.TrxID).
			Str("order_id", order.ID).
			Msg("Payment SMS without an amount")
		return res, nil
	}
	if domain.RoundMoney(sms.Amount) < order.Total {
		res.Reason = "amount is below the order total"
		logger.WithContext(ctx).Warn().
			Str("trx_id", sms.TrxID).
			Str("order_id", order.ID).
			Float64("amount", sms.Amount).
			Float64("total", order.Total).
			Msg("Payment SMS amount short")
		return res, nil
	}

	updated, err := u.commit(ctx, SystemActor("sms"), order, change{
		action: domain.HistoryEventPaymentVerified,
		event:  domain.HistoryEventPaymentVerified,
		reason: "matched payment SMS " + sms.TrxID,
		apply: func(o *domain.Order, now time.Time) error {
			return o.VerifyPayment(true, now)
		},
	})
	if err != nil {
		return nil, err
	}
	res.Matched = true
	res.Order = updated
	return res, nil
}
