package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/repos"
)

type PlatformHandler struct {
	platformRepo repos.PlatformRepo
}

func NewPlatformHandler(platformRepo repos.PlatformRepo) *PlatformHandler {
	return &PlatformHandler{platformRepo: platformRepo}
}

// GET /api/platforms
func (h *PlatformHandler) ListPlatforms(c *gin.Context) {
	platforms, err := h.platformRepo.ListActive(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"platforms": platforms})
}
