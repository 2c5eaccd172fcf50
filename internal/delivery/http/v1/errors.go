package v1

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/text/language"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.English, language.Bengali})

// locale picks "en" or "bn" from Accept-Language.
func locale(r *http.Request) string {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return "en"
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No || idx != 1 {
		return "en"
	}
	return "bn"
}

var voucherMessages = map[domain.VoucherErrorKind][2]string{
	domain.VoucherNotFound:             {"Invalid voucher code", "ভাউচার কোডটি সঠিক নয়"},
	domain.VoucherExpired:              {"This voucher has expired", "এই ভাউচারের মেয়াদ শেষ হয়ে গেছে"},
	domain.VoucherInactive:             {"This voucher is not active", "এই ভাউচারটি সক্রিয় নয়"},
	domain.VoucherUsageLimitReached:    {"This voucher has reached its usage limit", "এই ভাউচারের ব্যবহারের সীমা শেষ"},
	domain.VoucherBelowMinimumPurchase: {"Minimum purchase of Tk %.0f required", "সর্বনিম্ন %.0f টাকার কেনাকাটা প্রয়োজন"},
}

func voucherMessage(ve *domain.VoucherError, loc string) string {
	msgs, ok := voucherMessages[ve.Kind]
	if !ok {
		return ve.Error()
	}
	msg := msgs[0]
	if loc == "bn" {
		msg = msgs[1]
	}
	if ve.Kind == domain.VoucherBelowMinimumPurchase {
		return fmt.Sprintf(msg, ve.MinPurchase)
	}
	return msg
}

// validationMessages holds the Bengali text for customer-facing validation
// errors, keyed by code and then by field. English uses the error's own message.
var validationMessages = map[string]string{
	domain.ValidationEmptyCart:      "আপনার কার্ট খালি",
	domain.ValidationCODUnavailable: "এই অ্যাকাউন্টে ক্যাশ অন ডেলিভারি প্রযোজ্য নয়, অনুগ্রহ করে অনলাইনে পেমেন্ট করুন",
	domain.ValidationTrxIDRequired:  "অনলাইন পেমেন্টের জন্য ট্রানজ্যাকশন আইডি প্রয়োজন",

	"shippingAddress.recipientName": "প্রাপকের নাম প্রয়োজন",
	"shippingAddress.phone":         "ফোন নম্বর প্রয়োজন",
	"shippingAddress.division":      "বিভাগ নির্বাচন করুন",
	"shippingAddress.district":      "জেলা নির্বাচন করুন",
	"shippingAddress.details":       "ঠিকানার বিস্তারিত লিখুন",
	"phone":                         "১১ সংখ্যার মোবাইল নম্বর দিন",
	"quantity":                      "পরিমাণটি সঠিক নয়",
}

func validationMessage(ve *domain.ValidationError, loc string) string {
	if loc == "bn" {
		if msg, ok := validationMessages[ve.Code]; ok {
			return msg
		}
		if msg, ok := validationMessages[ve.Field]; ok {
			return msg
		}
	}
	return ve.Error()
}

// writeUsecaseError maps the domain error taxonomy onto HTTP.
func writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		voucherErr *domain.VoucherError
		stateErr   *domain.StateTransitionError
		conflict   *domain.ConflictError
		validation *domain.ValidationError
		external   *domain.ExternalServiceError
	)

	switch {
	case errors.As(err, &voucherErr):
		body := map[string]any{
			"error":   voucherMessage(voucherErr, locale(r)),
			"code":    voucherErr.Kind,
			"voucher": voucherErr.Code,
		}
		if voucherErr.Kind == domain.VoucherBelowMinimumPurchase {
			body["minPurchase"] = voucherErr.MinPurchase
		}
		utils.WriteJSON(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &validation):
		body := map[string]any{"error": validationMessage(validation, locale(r))}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		if validation.Code != "" {
			body["code"] = validation.Code
		}
		utils.WriteJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &stateErr):
		utils.WriteJSON(w, http.StatusConflict, map[string]any{
			"error":         stateErr.Error(),
			"currentStatus": stateErr.From,
			"targetStatus":  stateErr.To,
		})
	case errors.As(err, &conflict):
		utils.WriteJSON(w, http.StatusConflict, map[string]any{
			"error":                "order was modified by someone else, reload and retry",
			"currentStatus":        conflict.CurrentStatus,
			"currentPaymentStatus": conflict.CurrentPaymentStatus,
			"currentVersion":       conflict.CurrentVersion,
		})
	case errors.As(err, &external):
		logger.WithContext(r.Context()).Error().Err(err).Str("service", external.Service).Msg("Upstream failure")
		utils.WriteJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "upstream service failed, try again",
			"service": external.Service,
		})
	case errors.Is(err, domain.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUserBanned):
		utils.WriteError(w, http.StatusForbidden, domain.ErrUserBanned.Error())
	case errors.Is(err, domain.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		utils.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrTooManyRequests):
		utils.WriteError(w, http.StatusTooManyRequests, err.Error())
	default:
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled error")
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func badRequest(w http.ResponseWriter, err error) {
	utils.WriteError(w, http.StatusBadRequest, err.Error())
}
