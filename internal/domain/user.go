package domain

import (
	"context"
	"time"
)

type ContextKey string

const UserContextKey ContextKey = "user"

type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Role             string    `json:"role"`
	IsBanned         bool      `json:"isBanned"`
	BanReason        *string   `json:"banReason,omitempty"`
	FailedDeliveries int       `json:"failedDeliveries"`
	ReturnedParcels  int       `json:"returnedParcels"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsHighRisk is derived on every read so it always reflects the latest counter.
func (u *User) IsHighRisk() bool { return IsHighRisk(u.FailedDeliveries) }

type Address struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Label  string `json:"label"` // "Home", "Office"
	ShippingAddress
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	Revoked   bool      `json:"revoked"`
	Device    string    `json:"device"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetAll(ctx context.Context, limit, offset int) ([]*User, int64, error)
	UpdateProfile(ctx context.Context, id, name, phone string) (*User, error)
	SetBan(ctx context.Context, id string, banned bool, reason *string) error
	// RecordFailedDelivery increments the failed-delivery and returned-parcel
	// counters and returns the new failed-delivery count.
	RecordFailedDelivery(ctx context.Context, id string, returned bool) (int, error)

	// Addresses
	AddAddress(ctx context.Context, addr *Address) error
	GetAddresses(ctx context.Context, userID string) ([]Address, error)
	DeleteAddress(ctx context.Context, id, userID string) error

	// Refresh Tokens
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}
