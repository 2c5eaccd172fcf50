package v1

import (
	"fmt"
	"net/http"
	"time"

	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

type AdminStatsHandler struct {
	statsUC *usecase.StatsUsecase
}

func NewAdminStatsHandler(uc *usecase.StatsUsecase) *AdminStatsHandler {
	return &AdminStatsHandler{statsUC: uc}
}

// parseDate reads a YYYY-MM-DD query parameter, falling back to def when absent.
func parseDate(r *http.Request, param string, def time.Time) (time.Time, error) {
	str := r.URL.Query().Get(param)
	if str == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", str)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", param)
	}
	return t, nil
}

// GET /api/v1/admin/stats/orders?start=2026-01-01&end=2026-02-01
// Defaults to the last 30 days; end is exclusive.
func (h *AdminStatsHandler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	end, err := parseDate(r, "end", today.AddDate(0, 0, 1))
	if err != nil {
		badRequest(w, err)
		return
	}
	start, err := parseDate(r, "start", end.AddDate(0, 0, -30))
	if err != nil {
		badRequest(w, err)
		return
	}

	stats, err := h.statsUC.GetOrderStats(r.Context(), start, end)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
