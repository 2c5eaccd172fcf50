package usecase

import (
	"context"
	"fmt"
	"time"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/cache"
)

type StatsUsecase struct {
	orderRepo domain.OrderRepository
	cache     cache.CacheService
	ttl       time.Duration
}

func NewStatsUsecase(orderRepo domain.OrderRepository, c cache.CacheService, ttl time.Duration) *StatsUsecase {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsUsecase{orderRepo: orderRepo, cache: c, ttl: ttl}
}

type OrderStats struct {
	StatusCounts map[domain.OrderStatus]int64 `json:"statusCounts"`
	Revenue      domain.RevenueSummary        `json:"revenue"`
}

// GetOrderStats returns counts per status and delivered revenue in [start, end).
func (uc *StatsUsecase) GetOrderStats(ctx context.Context, start, end time.Time) (*OrderStats, error) {
	if end.Before(start) {
		return nil, domain.NewValidationError("end", "end date must be after start date")
	}
	if end.Sub(start) > 366*24*time.Hour {
		return nil, domain.NewValidationError("end", "date range cannot exceed 1 year")
	}

	cacheKey := fmt.Sprintf("stats:orders:%s:%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	if val, found := uc.cache.Get(cacheKey); found {
		stats := val.(OrderStats)
		return &stats, nil
	}

	counts, err := uc.orderRepo.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range domain.OrderStatuses {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	revenue, err := uc.orderRepo.Revenue(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := OrderStats{StatusCounts: counts, Revenue: revenue}
	uc.cache.Set(cacheKey, stats, uc.ttl)
	return &stats, nil
}
