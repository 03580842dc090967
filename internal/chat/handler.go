package chat

import (
	"github.com/gin-gonic/gin"

	"github.com/classlive/backend/internal/models"
	"github.com/classlive/backend/pkg/response"
)

// Handler serves the read-only chat history endpoint.
type Handler struct {
	repo *Repository
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// History handles GET /api/chat/history.
func (h *Handler) History(c *gin.Context) {
	list, err := h.repo.ListHistory(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load chat history")
		return
	}
	if list == nil {
		list = []models.ChatMessage{}
	}
	response.OK(c, list)
}
