package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kelvin-Wepo/ZillaPrice/internal/services"
)

type SearchHandler struct {
	search services.SearchService
}

func NewSearchHandler(search services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type textSearchRequest struct {
	Query      string   `json:"query" binding:"required"`
	Platforms  []string `json:"platforms"`
	MaxResults int      `json:"max_results"`
}

// POST /api/search/text
func (h *SearchHandler) TextSearch(c *gin.Context) {
	var req textSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	task, err := h.search.SubmitText(c.Request.Context(), services.SubmitTextInput{
		Query:      req.Query,
		Platforms:  req.Platforms,
		MaxResults: req.MaxResults,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID.String(),
		"status":  task.Status,
		"message": task.Message,
		"query":   task.Query,
	})
}

// POST /api/search/image (multipart: image file + optional max_results)
func (h *SearchHandler) ImageSearch(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer f.Close()
	image, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	maxResults := 0
	if v := c.PostForm("max_results"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			maxResults = parsed
		}
	}

	task, err := h.search.SubmitImage(c.Request.Context(), services.SubmitImageInput{
		Image:      image,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		MaxResults: maxResults,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": task.ID.String(),
		"status":  task.Status,
		"message": task.Message,
	})
}

// GET /api/search/status/:task_id
func (h *SearchHandler) SearchStatus(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_task_id", err)
		return
	}
	status, err := h.search.GetStatus(c.Request.Context(), taskID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, status)
}
