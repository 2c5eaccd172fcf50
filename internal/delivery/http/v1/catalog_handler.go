package v1

import (
	"net/http"
	"strings"

	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/utils"
)

type CatalogHandler struct {
	catalogUC *usecase.CatalogUsecase
}

func NewCatalogHandler(uc *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{catalogUC: uc}
}

// GET /api/v1/products?limit=&offset=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"), 20, 100)

	products, err := h.catalogUC.ListProducts(r.Context(), limit, offset)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	utils.WriteJSON(w, http.StatusOK, products)
}

// PUT /api/v1/admin/products/{id}
func (h *CatalogHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req usecase.UpsertProductRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	product, err := h.catalogUC.UpsertProduct(r.Context(), strings.TrimSpace(r.PathValue("id")), req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, product)
}
