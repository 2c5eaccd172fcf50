package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"rizqara-backend/internal/domain"
	infracache "rizqara-backend/internal/infrastructure/cache"
	"rizqara-backend/internal/repository/memory"
	"rizqara-backend/pkg/utils"
)

type authFixture struct {
	users    *memory.UserRepo
	notifier *recordingNotifier
	uc       *AuthUsecase
}

func newAuthFixture(t *testing.T, policy AuthPolicy) *authFixture {
	t.Helper()
	utils.SetSecret("test-secret")
	f := &authFixture{
		users:    memory.NewUserRepo(memory.NewStore()),
		notifier: &recordingNotifier{},
	}
	if policy.AccessTokenExpiry == 0 {
		policy.AccessTokenExpiry = 15 * time.Minute
	}
	if policy.RefreshTokenExpiry == 0 {
		policy.RefreshTokenExpiry = 24 * time.Hour
	}
	f.uc = NewAuthUsecase(f.users, infracache.NewMemoryCache(time.Minute, time.Minute), f.notifier, policy)
	f.uc.bcryptCost = bcrypt.MinCost
	return f
}

// lastCode returns the most recent OTP mailed out.
func (f *authFixture) lastCode(t *testing.T) string {
	t.Helper()
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.NotEmpty(t, f.notifier.sent)
	msg := f.notifier.sent[len(f.notifier.sent)-1]
	require.Equal(t, domain.TemplateOTP, msg.template)
	return msg.params["code"].(string)
}

func TestOTPLogin_RegistersNewCustomer(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{})
	ctx := context.Background()

	require.NoError(t, f.uc.RequestOTP(ctx, "  Nusrat@Example.com "))
	code := f.lastCode(t)
	assert.Len(t, code, 6)

	res, err := f.uc.VerifyOTP(ctx, VerifyOTPRequest{Email: "nusrat@example.com", Code: code, Name: "Nusrat", Phone: "+8801711000000"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "nusrat@example.com", res.User.Email)
	assert.Equal(t, "01711000000", res.User.Phone)
	assert.Equal(t, domain.RoleCustomer, res.User.Role)

	claims, err := utils.ValidateJWT(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = f.uc.VerifyOTP(ctx, VerifyOTPRequest{Email: "nusrat@example.com", Code: code})
	assert.ErrorIs(t, err, domain.ErrValidation, "codes are single use")
}

func TestOTP_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid email", func(t *testing.T) {
		f := newAuthFixture(t, AuthPolicy{})
		assert.ErrorIs(t, f.uc.RequestOTP(ctx, "not-an-email"), domain.ErrValidation)
	})

	t.Run("resend throttled", func(t *testing.T) {
		f := newAuthFixture(t, AuthPolicy{OTPResendAfter: time.Minute})
		require.NoError(t, f.uc.RequestOTP(ctx, "a@example.com"))
		assert.ErrorIs(t, f.uc.RequestOTP(ctx, "a@example.com"), domain.ErrTooManyRequests)
		assert.NoError(t, f.uc.RequestOTP(ctx, "b@example.com"))
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		f := newAuthFixture(t, AuthPolicy{OTPMaxAttempts: 2})
		require.NoError(t, f.uc.RequestOTP(ctx, "a@example.com"))
		code := f.lastCode(t)
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		for i := 0; i < 2; i++ {
			_, err := f.uc.VerifyOTP(ctx, VerifyOTPRequest{Email: "a@example.com", Code: wrong})
			assert.ErrorIs(t, err, domain.ErrValidation)
		}
		_, err := f.uc.VerifyOTP(ctx, VerifyOTPRequest{Email: "a@example.com", Code: code})
		assert.ErrorIs(t, err, domain.ErrTooManyRequests)
	})

	t.Run("expired", func(t *testing.T) {
		f := newAuthFixture(t, AuthPolicy{})
		require.NoError(t, f.uc.RequestOTP(ctx, "a@example.com"))
		code := f.lastCode(t)
		f.uc.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err := f.uc.VerifyOTP(ctx, VerifyOTPRequest{Email: "a@example.com", Code: code})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("banned user", func(t *testing.T) {
		f := newAuthFixture(t, AuthPolicy{})
		reason := "fraud"
		require.NoError(t, f.users.Create(ctx, &domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleCustomer}))
		require.NoError(t, f.users.SetBan(ctx, "u1", true, &reason))
		assert.ErrorIs(t, f.uc.RequestOTP(ctx, "a@example.com"), domain.ErrUserBanned)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	f := newAuthFixture(t, AuthPolicy{})
	ctx := context.Background()
	require.NoError(t, f.uc.RequestOTP(ctx, "a@example.com"))
	res, err := f.uc.VerifyOTP(ctx, VerifyOTPRequest{Email: "a@example.com", Code: f.lastCode(t)})
	require.NoError(t, err)

	token, err := f.uc.RefreshAccessToken(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = f.uc.RefreshAccessToken(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	reason := "abuse"
	require.NoError(t, f.users.SetBan(ctx, res.User.ID, true, &reason))
	_, err = f.uc.RefreshAccessToken(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUserBanned)

	_, err = f.uc.RefreshAccessToken(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "banned user's token is revoked")
}
