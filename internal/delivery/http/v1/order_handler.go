package v1

import (
	"net/http"

	"rizqara-backend/internal/delivery/http/middleware"
	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

type OrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{orderUC: uc}
}

// actorFrom builds the use case actor from the authenticated user.
func actorFrom(r *http.Request) (usecase.Actor, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{ID: user.ID, Role: user.Role}, true
}

func unauthorized(w http.ResponseWriter) {
	utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
}

// POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req usecase.CheckoutRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	order, err := h.orderUC.Checkout(r.Context(), actor.ID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order)
}

// POST /api/v1/checkout/quote
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		District    string `json:"district"`
		VoucherCode string `json:"voucherCode"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	quote, err := h.orderUC.Quote(r.Context(), actor.ID, req.District, req.VoucherCode)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

// GET /api/v1/orders
func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	orders, err := h.orderUC.GetMyOrders(r.Context(), actor.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	order, err := h.orderUC.GetOrder(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Reason          string `json:"reason"`
		ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	order, err := h.orderUC.Cancel(r.Context(), actor, r.PathValue("id"), req.Reason, false, req.ExpectedVersion)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{id}/refund
func (h *OrderHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Reason          string `json:"reason"`
		PaymentNumber   string `json:"paymentNumber"`
		ExpectedVersion *int64 `json:"expectedVersion"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	order, err := h.orderUC.RequestRefund(r.Context(), actor, r.PathValue("id"), req.Reason, req.PaymentNumber, req.ExpectedVersion)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}
