package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/cache"
	"rizqara-backend/pkg/utils"
)

// CatalogUsecase serves the product read model that checkout prices against.
// Full catalog management lives elsewhere; admins can only upsert prices and
// availability here.
type CatalogUsecase struct {
	repo  domain.ProductRepository
	cache cache.CacheService
}

func NewCatalogUsecase(repo domain.ProductRepository, c cache.CacheService) *CatalogUsecase {
	return &CatalogUsecase{repo: repo, cache: c}
}

func (uc *CatalogUsecase) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	cacheKey := fmt.Sprintf("products:active:%d:%d", limit, offset)
	if val, found := uc.cache.Get(cacheKey); found {
		return val.([]domain.Product), nil
	}
	products, err := uc.repo.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(cacheKey, products, 5*time.Minute)
	return products, nil
}

type UpsertProductRequest struct {
	TitleEn       string   `json:"titleEn"`
	TitleBn       string   `json:"titleBn"`
	Category      string   `json:"category"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	IsActive      *bool    `json:"isActive,omitempty"`
}

func (uc *CatalogUsecase) UpsertProduct(ctx context.Context, id string, req UpsertProductRequest) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id", "product id is required")
	}
	now := time.Now()
	p := &domain.Product{
		ID:            id,
		TitleEn:       utils.SanitizeText(req.TitleEn),
		TitleBn:       utils.SanitizeText(req.TitleBn),
		Category:      strings.ToLower(utils.SanitizeText(req.Category)),
		Price:         domain.RoundMoney(req.Price),
		DiscountPrice: req.DiscountPrice,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing, err := uc.repo.GetByIDs(ctx, []string{id}); err == nil {
		if prev, ok := existing[id]; ok {
			p.CreatedAt = prev.CreatedAt
		}
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := uc.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	uc.cache.DeletePrefix("products:")
	return p, nil
}
