package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rizqara-backend/internal/domain"
)

type userRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, phone, role, is_banned, ban_reason, failed_deliveries, returned_parcels,
	created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.IsBanned, &u.BanReason,
		&u.FailedDeliveries, &u.ReturnedParcels, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.Name, strings.ToLower(user.Email), user.Phone, user.Role, user.IsBanned, user.BanReason,
		user.FailedDeliveries, user.ReturnedParcels, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.NewValidationError("email", "email already registered")
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepository) GetAll(ctx context.Context, limit, offset int) ([]*domain.User, int64, error) {
	q := conn(ctx, r.db)
	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, name, phone string) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, `UPDATE users SET name = $2, phone = $3, updated_at = now()
		WHERE id = $1 RETURNING `+userColumns, id, name, phone))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepository) SetBan(ctx context.Context, id string, banned bool, reason *string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE users SET is_banned = $2, ban_reason = $3, updated_at = now()
		WHERE id = $1`, id, banned, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) RecordFailedDelivery(ctx context.Context, id string, returned bool) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE users SET
			failed_deliveries = failed_deliveries + 1,
			returned_parcels = returned_parcels + CASE WHEN $2 THEN 1 ELSE 0 END,
			updated_at = now()
		WHERE id = $1 RETURNING failed_deliveries`, id, returned).Scan(&n)
	if err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

func (r *userRepository) AddAddress(ctx context.Context, addr *domain.Address) error {
	q := conn(ctx, r.db)
	if addr.IsDefault {
		if _, err := q.Exec(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1`, addr.UserID); err != nil {
			return err
		}
	}
	_, err := q.Exec(ctx, `INSERT INTO addresses
		(id, user_id, label, recipient_name, phone, division, district, upazila, details, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		addr.ID, addr.UserID, addr.Label, addr.RecipientName, addr.Phone, addr.Division, addr.District,
		addr.Upazila, addr.Details, addr.IsDefault, addr.CreatedAt)
	return err
}

func (r *userRepository) GetAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, user_id, label, recipient_name, phone, division, district,
		upazila, details, is_default, created_at FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.RecipientName, &a.Phone, &a.Division, &a.District,
			&a.Upazila, &a.Details, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *userRepository) DeleteAddress(ctx context.Context, id, userID string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) SaveRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO refresh_tokens (token, user_id, expires_at, created_at, revoked, device)
		VALUES ($1, $2, $3, $4, $5, $6)`, t.Token, t.UserID, t.ExpiresAt, t.CreatedAt, t.Revoked, t.Device)
	return err
}

func (r *userRepository) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT token, user_id, expires_at, created_at, revoked, device
		FROM refresh_tokens WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt, &t.Revoked, &t.Device)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *userRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := conn(ctx, r.db).Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
