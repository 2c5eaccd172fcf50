package v1

import (
	"net/http"

	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

type AdminOrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orderUC: uc}
}

// GET /api/v1/admin/orders?status=&payment_status=&search=&limit=&offset=
func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := utils.ParseLimitOffset(q.Get("limit"), q.Get("offset"), 20, 100)

	filter := domain.OrderFilter{
		Status:        domain.OrderStatus(q.Get("status")),
		PaymentStatus: domain.PaymentStatus(q.Get("payment_status")),
		UserID:        q.Get("user_id"),
		Search:        q.Get("search"),
		Limit:         limit,
		Offset:        offset,
	}

	orders, total, err := h.orderUC.ListOrders(r.Context(), filter)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, domain.ListResponse[domain.Order]{
		Data: orders,
		Meta: domain.NewPagination(limit, offset, total),
	})
}

// GET /api/v1/admin/orders/{id}
func (h *AdminOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
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

// GET /api/v1/admin/orders/{id}/history
func (h *AdminOrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.orderUC.GetOrderHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if history == nil {
		history = []domain.OrderHistory{}
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

// PATCH /api/v1/orders/{id}/status
func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req usecase.StatusUpdate
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	order, err := h.orderUC.UpdateStatus(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{id}/payment-verification
func (h *AdminOrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Approve         *bool  `json:"approve"`
		Note            string `json:"note"`
		ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Approve == nil {
		utils.WriteError(w, http.StatusBadRequest, "approve is required")
		return
	}

	order, err := h.orderUC.VerifyPayment(r.Context(), actor, r.PathValue("id"), *req.Approve, req.Note, req.ExpectedVersion)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// POST /api/v1/admin/orders/{id}/shipment
func (h *AdminOrderHandler) BookShipment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Note            string `json:"note"`
		ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			badRequest(w, err)
			return
		}
	}

	order, err := h.orderUC.BookShipment(r.Context(), actor, r.PathValue("id"), req.Note, req.ExpectedVersion)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// POST /api/v1/admin/orders/{id}/courier-sync
func (h *AdminOrderHandler) SyncCourier(w http.ResponseWriter, r *http.Request) {
	order, status, err := h.orderUC.SyncCourierStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"courierStatus": status,
		"order":         order,
	})
}

// POST /api/v1/admin/orders/{id}/refund
func (h *AdminOrderHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Approve             *bool  `json:"approve"`
		RefundPaymentNumber string `json:"refundPaymentNumber"`
		Note                string `json:"note"`
		ExpectedVersion     *int64 `json:"expectedVersion"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Approve == nil {
		utils.WriteError(w, http.StatusBadRequest, "approve is required")
		return
	}

	order, err := h.orderUC.ProcessRefund(r.Context(), actor, r.PathValue("id"), *req.Approve, req.RefundPaymentNumber, req.Note, req.ExpectedVersion)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// PATCH /api/v1/admin/orders/{id}/price
func (h *AdminOrderHandler) OverridePrice(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req struct {
		Total           *float64 `json:"total"`
		ExpectedVersion *int64   `json:"expectedVersion,omitempty"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Total == nil {
		utils.WriteError(w, http.StatusBadRequest, "total is required")
		return
	}

	order, err := h.orderUC.OverridePrice(r.Context(), actor, r.PathValue("id"), *req.Total, req.ExpectedVersion)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// DELETE /api/v1/admin/orders/{id}
func (h *AdminOrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.orderUC.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
