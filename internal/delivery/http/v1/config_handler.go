package v1

import (
	"net/http"
	"time"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/cache"
	"rizqara-backend/pkg/utils"
)

const enumsCacheKey = "system:config:enums"

type ConfigHandler struct {
	cache    cache.CacheService
	delivery domain.DeliveryRules
}

func NewConfigHandler(c cache.CacheService, delivery domain.DeliveryRules) *ConfigHandler {
	return &ConfigHandler{cache: c, delivery: delivery}
}

// GET /api/v1/config/enums
func (h *ConfigHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if val, found := h.cache.Get(enumsCacheKey); found {
		utils.WriteJSON(w, http.StatusOK, val)
		return
	}

	response := map[string]any{
		"orderStatuses":      domain.OrderStatuses,
		"paymentStatuses":    domain.PaymentStatuses,
		"paymentMethods":     domain.PaymentMethods,
		"customizationKinds": []domain.CustomizationKind{domain.CustomizationNone, domain.CustomizationSketch, domain.CustomizationCraft},
		"sketchSizes":        domain.SketchSizes,
		"delivery":           h.delivery,
	}
	h.cache.Set(enumsCacheKey, response, time.Hour)
	utils.WriteJSON(w, http.StatusOK, response)
}
