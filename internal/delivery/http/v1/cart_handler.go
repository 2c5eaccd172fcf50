package v1

import (
	"net/http"

	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

type CartHandler struct {
	cartUC    *usecase.CartUsecase
	voucherUC *usecase.VoucherUsecase
}

func NewCartHandler(cartUC *usecase.CartUsecase, voucherUC *usecase.VoucherUsecase) *CartHandler {
	return &CartHandler{cartUC: cartUC, voucherUC: voucherUC}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	cart, err := h.cartUC.GetMyCart(r.Context(), actor.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

// POST /api/v1/cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req usecase.AddCartItemRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	cart, err := h.cartUC.AddToCart(r.Context(), actor.ID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

// PUT /api/v1/cart/{itemId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	cart, err := h.cartUC.UpdateQuantity(r.Context(), actor.ID, r.PathValue("itemId"), req.Quantity)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

// DELETE /api/v1/cart/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	cart, err := h.cartUC.RemoveFromCart(r.Context(), actor.ID, r.PathValue("itemId"))
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

// POST /api/v1/cart/voucher previews a code against the server-held cart.
func (h *CartHandler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	quote, err := h.voucherUC.ValidateForCart(r.Context(), actor.ID, req.Code)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}
