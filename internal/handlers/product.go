package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/services"
)

type ProductHandler struct {
	products services.ProductService
}

func NewProductHandler(products services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// GET /api/products?brand=&category=&limit=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	products, err := h.products.List(c.Request.Context(), c.Query("brand"), c.Query("category"), limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"products": products})
}

// GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
		return
	}
	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"product": product})
}

// GET /api/products/:id/price-history
func (h *ProductHandler) PriceHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
		return
	}
	history, err := h.products.PriceHistory(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"price_history": history})
}
