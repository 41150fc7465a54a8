package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/services"
)

type CompareHandler struct {
	comparison services.ComparisonService
}

func NewCompareHandler(comparison services.ComparisonService) *CompareHandler {
	return &CompareHandler{comparison: comparison}
}

// GET /api/compare?product_id=... | ?query=...
func (h *CompareHandler) Compare(c *gin.Context) {
	var productID *uuid.UUID
	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_product_id", err)
			return
		}
		productID = &id
	}

	views, err := h.comparison.Compare(c.Request.Context(), productID, c.Query("query"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"comparisons":    views,
		"total_products": len(views),
	})
}
