package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/cache"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

type AuthPolicy struct {
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	OTPExpiry          time.Duration
	OTPResendAfter     time.Duration
	OTPMaxAttempts     int
}

// AuthUsecase implements passwordless login: a one-time code is mailed to the
// customer and exchanged for an access token and a refresh token.
type AuthUsecase struct {
	userRepo   domain.UserRepository
	cache      cache.CacheService
	notifier   domain.Notifier
	policy     AuthPolicy
	bcryptCost int
	now        func() time.Time

	mu sync.Mutex // guards otpEntry.attempts
}

func NewAuthUsecase(userRepo domain.UserRepository, c cache.CacheService, notifier domain.Notifier, policy AuthPolicy) *AuthUsecase {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if policy.OTPMaxAttempts <= 0 {
		policy.OTPMaxAttempts = 5
	}
	if policy.OTPExpiry <= 0 {
		policy.OTPExpiry = 5 * time.Minute
	}
	return &AuthUsecase{
		userRepo:   userRepo,
		cache:      c,
		notifier:   notifier,
		policy:     policy,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

type otpEntry struct {
	hash      []byte
	attempts  int
	expiresAt time.Time
}

func otpKey(email string) string       { return "otp:" + email }
func otpResendKey(email string) string { return "otp:resend:" + email }

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.NewValidationError("email", "a valid email address is required")
	}
	return email, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestOTP issues a fresh code. Only a bcrypt hash is kept.
func (u *AuthUsecase) RequestOTP(ctx context.Context, rawEmail string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}

	user, err := u.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && user.IsBanned:
		return domain.ErrUserBanned
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}

	if u.policy.OTPResendAfter > 0 && !u.cache.Add(otpResendKey(email), true, u.policy.OTPResendAfter) {
		return fmt.Errorf("please wait before requesting another code: %w", domain.ErrTooManyRequests)
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), u.bcryptCost)
	if err != nil {
		return err
	}
	u.cache.Set(otpKey(email), &otpEntry{
		hash:      hash,
		expiresAt: u.now().Add(u.policy.OTPExpiry),
	}, u.policy.OTPExpiry)

	to := domain.Recipient{Email: email}
	if user != nil {
		to.UserID, to.Name, to.Phone = user.ID, user.Name, user.Phone
	}
	u.notifier.Notify(ctx, to, domain.TemplateOTP, map[string]any{
		"code":    code,
		"minutes": int(u.policy.OTPExpiry.Minutes()),
	})
	logger.WithContext(ctx).Info().Str("email", email).Msg("OTP issued")
	return nil
}

type VerifyOTPRequest struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Device string `json:"-"`
}

type AuthResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"-"`
	User         *domain.User `json:"user"`
}

// VerifyOTP exchanges a code for tokens, creating the customer on first login.
func (u *AuthUsecase) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := u.checkCode(email, strings.TrimSpace(req.Code)); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("email", email).Msg("OTP verification failed")
		return nil, err
	}

	user, err := u.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		now := u.now()
		name := utils.SanitizeText(req.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = &domain.User{
			ID:        uuid.NewString(),
			Name:      name,
			Email:     email,
			Phone:     utils.NormalizePhone(req.Phone),
			Role:      domain.RoleCustomer,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := u.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		logger.WithContext(ctx).Info().Str("user_id", user.ID).Msg("Customer registered")
	} else if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, domain.ErrUserBanned
	}
	return u.issueTokens(ctx, user, req.Device)
}

func (u *AuthUsecase) checkCode(email, code string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	v, ok := u.cache.Get(otpKey(email))
	if !ok {
		return domain.NewValidationError("code", "the code has expired, request a new one")
	}
	entry := v.(*otpEntry)
	if u.now().After(entry.expiresAt) {
		u.cache.Delete(otpKey(email))
		return domain.NewValidationError("code", "the code has expired, request a new one")
	}
	if entry.attempts >= u.policy.OTPMaxAttempts {
		u.cache.Delete(otpKey(email))
		return fmt.Errorf("too many incorrect codes: %w", domain.ErrTooManyRequests)
	}
	if bcrypt.CompareHashAndPassword(entry.hash, []byte(code)) != nil {
		entry.attempts++
		return domain.NewValidationError("code", "incorrect code")
	}
	u.cache.Delete(otpKey(email))
	u.cache.Delete(otpResendKey(email))
	return nil
}

func (u *AuthUsecase) issueTokens(ctx context.Context, user *domain.User, device string) (*AuthResult, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Email, user.Role, u.policy.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}
	now := u.now()
	if device == "" {
		device = "unknown"
	}
	rt := &domain.RefreshToken{
		Token:     utils.NewRefreshToken(),
		UserID:    user.ID,
		ExpiresAt: now.Add(u.policy.RefreshTokenExpiry),
		CreatedAt: now,
		Device:    device,
	}
	if err := u.userRepo.SaveRefreshToken(ctx, rt); err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: accessToken, RefreshToken: rt.Token, User: user}, nil
}

// RefreshAccessToken issues a new access token. The refresh token stays valid
// until it expires or is revoked.
func (u *AuthUsecase) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	rt, err := u.userRepo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if rt.Revoked {
		return "", fmt.Errorf("token revoked: %w", domain.ErrUnauthorized)
	}
	if u.now().After(rt.ExpiresAt) {
		return "", fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
	}

	user, err := u.userRepo.GetByID(ctx, rt.UserID)
	if err != nil {
		return "", err
	}
	if user.IsBanned {
		_ = u.userRepo.RevokeRefreshToken(ctx, refreshToken)
		return "", domain.ErrUserBanned
	}
	return utils.GenerateJWT(user.ID, user.Email, user.Role, u.policy.AccessTokenExpiry)
}

func (u *AuthUsecase) RevokeToken(ctx context.Context, refreshToken string) error {
	return u.userRepo.RevokeRefreshToken(ctx, refreshToken)
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, userID)
}
