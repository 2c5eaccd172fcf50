package v1

import (
	"net/http"

	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

type UserHandler struct {
	userUC *usecase.UserUsecase
}

func NewUserHandler(uc *usecase.UserUsecase) *UserHandler {
	return &UserHandler{userUC: uc}
}

// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req usecase.UpdateProfileRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	user, err := h.userUC.UpdateProfile(r.Context(), actor.ID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}

// GET /api/v1/user/addresses
func (h *UserHandler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	addrs, err := h.userUC.GetAddresses(r.Context(), actor.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	utils.WriteJSON(w, http.StatusOK, addrs)
}

// POST /api/v1/user/addresses
func (h *UserHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req domain.Address
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	addr, err := h.userUC.AddAddress(r.Context(), actor.ID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, addr)
}

// DELETE /api/v1/user/addresses/{id}
func (h *UserHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.userUC.DeleteAddress(r.Context(), actor.ID, r.PathValue("id")); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/admin/users?limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"), 20, 100)
	users, total, err := h.userUC.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	utils.WriteJSON(w, http.StatusOK, domain.ListResponse[*domain.User]{
		Data: users,
		Meta: domain.NewPagination(limit, offset, total),
	})
}

// POST /api/v1/admin/users/{id}/ban
func (h *UserHandler) Ban(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			badRequest(w, err)
			return
		}
	}
	if err := h.userUC.Ban(r.Context(), actor, r.PathValue("id"), req.Reason); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/admin/users/{id}/unban
func (h *UserHandler) Unban(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	if err := h.userUC.Unban(r.Context(), actor, r.PathValue("id")); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
