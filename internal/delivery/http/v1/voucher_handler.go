package v1

import (
	"net/http"

	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

// VoucherHandler serves the public validate endpoint and admin CRUD.
type VoucherHandler struct {
	voucherUC *usecase.VoucherUsecase
}

func NewVoucherHandler(uc *usecase.VoucherUsecase) *VoucherHandler {
	return &VoucherHandler{voucherUC: uc}
}

// POST /api/v1/vouchers/validate
func (h *VoucherHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string  `json:"code"`
		Subtotal float64 `json:"subtotal"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	quote, err := h.voucherUC.Validate(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

// GET /api/v1/admin/vouchers?limit=&offset=
func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"), 20, 100)
	vouchers, total, err := h.voucherUC.List(r.Context(), limit, offset)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if vouchers == nil {
		vouchers = []domain.Voucher{}
	}
	utils.WriteJSON(w, http.StatusOK, domain.ListResponse[domain.Voucher]{
		Data: vouchers,
		Meta: domain.NewPagination(limit, offset, total),
	})
}

// POST /api/v1/admin/vouchers
func (h *VoucherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req usecase.VoucherRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	v, err := h.voucherUC.Create(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, v)
}

// GET /api/v1/admin/vouchers/{id}
func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.voucherUC.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, v)
}

// PUT /api/v1/admin/vouchers/{id}
func (h *VoucherHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req usecase.VoucherRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	v, err := h.voucherUC.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, v)
}

// DELETE /api/v1/admin/vouchers/{id}
func (h *VoucherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.voucherUC.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
