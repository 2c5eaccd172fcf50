package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rizqara-backend/internal/domain"
)

type voucherRepository struct {
	db *pgxpool.Pool
}

func NewVoucherRepository(db *pgxpool.Pool) domain.VoucherRepository {
	return &voucherRepository{db: db}
}

const voucherColumns = `id, code, discount, description_en, description_bn, min_purchase, max_discount,
	valid_until, is_active, usage_limit, used_count, created_at, updated_at`

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	var v domain.Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Discount, &v.DescriptionEn, &v.DescriptionBn, &v.MinPurchase,
		&v.MaxDiscount, &v.ValidUntil, &v.IsActive, &v.UsageLimit, &v.UsedCount, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func duplicateCode(code string) error {
	return domain.NewValidationError("code", fmt.Sprintf("voucher %s already exists", code))
}

func (r *voucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO vouchers (`+voucherColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.ID, domain.NormalizeVoucherCode(v.Code), v.Discount, v.DescriptionEn, v.DescriptionBn, v.MinPurchase,
		v.MaxDiscount, v.ValidUntil, v.IsActive, v.UsageLimit, v.UsedCount, v.CreatedAt, v.UpdatedAt)
	if isUniqueViolation(err) {
		return duplicateCode(v.Code)
	}
	return err
}

func (r *voucherRepository) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	v, err := scanVoucher(conn(ctx, r.db).QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (r *voucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	v, err := scanVoucher(conn(ctx, r.db).QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`,
		domain.NormalizeVoucherCode(code)))
	if err != nil {
		return nil, notFound(err)
	}
	return v, nil
}

func (r *voucherRepository) List(ctx context.Context, limit, offset int) ([]domain.Voucher, int64, error) {
	q := conn(ctx, r.db)
	var total int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM vouchers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

func (r *voucherRepository) Update(ctx context.Context, v *domain.Voucher) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE vouchers SET
			code = $2, discount = $3, description_en = $4, description_bn = $5, min_purchase = $6,
			max_discount = $7, valid_until = $8, is_active = $9, usage_limit = $10, updated_at = $11
		WHERE id = $1`,
		v.ID, domain.NormalizeVoucherCode(v.Code), v.Discount, v.DescriptionEn, v.DescriptionBn, v.MinPurchase,
		v.MaxDiscount, v.ValidUntil, v.IsActive, v.UsageLimit, v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateCode(v.Code)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *voucherRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementUsage is a single conditional UPDATE, so two checkouts racing for the
// last redemption cannot both succeed.
func (r *voucherRepository) IncrementUsage(ctx context.Context, code string, now time.Time) error {
	code = domain.NormalizeVoucherCode(code)
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE vouchers
		SET used_count = used_count + 1, updated_at = $2
		WHERE code = $1 AND is_active AND valid_until >= $2
		  AND (usage_limit IS NULL OR used_count < usage_limit)`, code, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	v, err := r.GetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.VoucherError{Kind: domain.VoucherNotFound, Code: code}
	}
	if err != nil {
		return err
	}
	if verr := v.Check(now); verr != nil {
		return verr
	}
	return &domain.VoucherError{Kind: domain.VoucherUsageLimitReached, Code: code}
}
