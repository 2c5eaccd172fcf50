package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"rizqara-backend/internal/domain"
)

type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.NewValidationError("email", "email already registered")
		}
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetAll(ctx context.Context, limit, offset int) ([]*domain.User, int64, error) {
	r.s.mu.RLock()
	out := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return []*domain.User{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, phone string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Name = name
	u.Phone = phone
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *UserRepo) SetBan(ctx context.Context, id string, banned bool, reason *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsBanned = banned
	u.BanReason = reason
	u.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepo) RecordFailedDelivery(ctx context.Context, id string, returned bool) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	u.FailedDeliveries++
	if returned {
		u.ReturnedParcels++
	}
	u.UpdatedAt = time.Now()
	return u.FailedDeliveries, nil
}

func (r *UserRepo) AddAddress(ctx context.Context, addr *domain.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.addresses[addr.UserID]
	if addr.IsDefault {
		for i := range list {
			list[i].IsDefault = false
		}
	}
	r.s.addresses[addr.UserID] = append(list, *addr)
	return nil
}

func (r *UserRepo) GetAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Address, len(r.s.addresses[userID]))
	copy(out, r.s.addresses[userID])
	return out, nil
}

func (r *UserRepo) DeleteAddress(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.addresses[userID]
	for i, a := range list {
		if a.ID == id {
			r.s.addresses[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *UserRepo) SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := *token
	r.s.refreshTokens[token.Token] = &t
	return nil
}

func (r *UserRepo) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.refreshTokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *UserRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.refreshTokens[token]; ok {
		t.Revoked = true
	}
	return nil
}
