package postgres

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"rizqara-backend/internal/domain"
)

type productRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) domain.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, title_en, title_bn, category, price, discount_price, is_active, created_at, updated_at`

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.TitleEn, &p.TitleBn, &p.Category, &p.Price, &p.DiscountPrice,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *productRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE is_active ORDER BY title_en LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.TitleEn, &p.TitleBn, &p.Category, &p.Price, &p.DiscountPrice,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *productRepository) Upsert(ctx context.Context, p *domain.Product) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title_en = EXCLUDED.title_en, title_bn = EXCLUDED.title_bn, category = EXCLUDED.category,
			price = EXCLUDED.price, discount_price = EXCLUDED.discount_price, is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.TitleEn, p.TitleBn, p.Category, p.Price, p.DiscountPrice, p.IsActive, p.CreatedAt, p.UpdatedAt)
	return err
}

type cartRepository struct {
	db *pgxpool.Pool
}

func NewCartRepository(db *pgxpool.Pool) domain.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, user_id, product_id, variant, quantity, customization, added_at
		FROM cart_items WHERE user_id = $1 ORDER BY added_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CartItem{}
	for rows.Next() {
		var (
			it     domain.CartItem
			custom []byte
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Variant, &it.Quantity, &custom, &it.AddedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(custom, &it.Customization); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *cartRepository) AddItem(ctx context.Context, item *domain.CartItem) error {
	custom, err := json.Marshal(item.Customization)
	if err != nil {
		return err
	}
	_, err = conn(ctx, r.db).Exec(ctx, `INSERT INTO cart_items (id, user_id, product_id, variant, quantity, customization, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.UserID, item.ProductID, item.Variant, item.Quantity, custom, item.AddedAt)
	return err
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE cart_items SET quantity = $3 WHERE id = $1 AND user_id = $2`,
		itemID, userID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, itemID string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
