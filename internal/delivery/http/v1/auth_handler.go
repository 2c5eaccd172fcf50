package v1

import (
	"net/http"
	"time"

	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	authUC        *usecase.AuthUsecase
	refreshExpiry time.Duration
	secureCookies bool
}

func NewAuthHandler(authUC *usecase.AuthUsecase, refreshExpiry time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{authUC: authUC, refreshExpiry: refreshExpiry, secureCookies: secureCookies}
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/api/v1/auth",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// POST /api/v1/auth/otp/request
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.authUC.RequestOTP(r.Context(), req.Email); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "verification code sent"})
}

// POST /api/v1/auth/otp/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req usecase.VerifyOTPRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	req.Device = r.UserAgent()

	res, err := h.authUC.VerifyOTP(r.Context(), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	h.setRefreshCookie(w, res.RefreshToken, int(h.refreshExpiry.Seconds()))
	utils.WriteJSON(w, http.StatusOK, res)
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil || cookie.Value == "" {
		utils.WriteError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}

	accessToken, err := h.authUC.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		h.setRefreshCookie(w, "", -1)
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Revocation failures do not block the logout; the cookie is cleared regardless.
	if cookie, err := r.Cookie(refreshCookie); err == nil && cookie.Value != "" {
		if err := h.authUC.RevokeToken(r.Context(), cookie.Value); err != nil {
			logger.WithContext(r.Context()).Warn().Err(err).Msg("Failed to revoke token on logout")
		}
	}
	h.setRefreshCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		unauthorized(w)
		return
	}
	user, err := h.authUC.Me(r.Context(), actor.ID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}
