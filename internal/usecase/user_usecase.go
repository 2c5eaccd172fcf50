package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/utils"
)

type UserUsecase struct {
	userRepo domain.UserRepository
}

func NewUserUsecase(userRepo domain.UserRepository) *UserUsecase {
	return &UserUsecase{userRepo: userRepo}
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (uc *UserUsecase) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	name := utils.SanitizeText(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	phone := utils.NormalizePhone(req.Phone)
	if req.Phone != "" && len(phone) != 11 {
		return nil, domain.NewValidationError("phone", "enter an 11 digit mobile number")
	}
	return uc.userRepo.UpdateProfile(ctx, userID, name, phone)
}

// --- Address Management ---

func (uc *UserUsecase) AddAddress(ctx context.Context, userID string, req domain.Address) (*domain.Address, error) {
	addr := domain.Address{
		ID:              uuid.NewString(),
		UserID:          userID,
		Label:           utils.SanitizeText(req.Label),
		ShippingAddress: sanitizeAddress(req.ShippingAddress),
		IsDefault:       req.IsDefault,
		CreatedAt:       time.Now(),
	}
	if err := addr.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if err := uc.userRepo.AddAddress(ctx, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func (uc *UserUsecase) GetAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	return uc.userRepo.GetAddresses(ctx, userID)
}

// DeleteAddress is scoped to the owner, so another customer's id is not found.
func (uc *UserUsecase) DeleteAddress(ctx context.Context, userID, addressID string) error {
	return uc.userRepo.DeleteAddress(ctx, addressID, userID)
}

// --- Admin ---

func (uc *UserUsecase) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.userRepo.GetAll(ctx, limit, offset)
}

func (uc *UserUsecase) Ban(ctx context.Context, actor Actor, userID, reason string) error {
	if actor.ID == userID {
		return domain.NewValidationError("id", "you cannot ban yourself")
	}
	reason = utils.SanitizeText(reason)
	if strings.TrimSpace(reason) == "" {
		return domain.NewValidationError("reason", "a ban reason is required")
	}
	if err := uc.userRepo.SetBan(ctx, userID, true, &reason); err != nil {
		return err
	}
	logger.WithContext(ctx).Warn().Str("user_id", userID).Str("actor", actor.ID).Str("reason", reason).Msg("User banned")
	return nil
}

func (uc *UserUsecase) Unban(ctx context.Context, actor Actor, userID string) error {
	if err := uc.userRepo.SetBan(ctx, userID, false, nil); err != nil {
		return err
	}
	logger.WithContext(ctx).Info().Str("user_id", userID).Str("actor", actor.ID).Msg("User unbanned")
	return nil
}
