package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
)

type HistoryHandler struct {
	historyRepo repos.SearchHistoryRepo
}

func NewHistoryHandler(historyRepo repos.SearchHistoryRepo) *HistoryHandler {
	return &HistoryHandler{historyRepo: historyRepo}
}

// GET /api/search/history?limit=
func (h *HistoryHandler) RecentSearches(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	history, err := h.historyRepo.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}
