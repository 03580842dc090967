package students

import (
	"github.com/gin-gonic/gin"

	"github.com/classlive/backend/internal/models"
	"github.com/classlive/backend/pkg/response"
)

// Handler serves the read-only student query endpoint.
type Handler struct {
	repo *Repository
}

// NewHandler creates a students handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListActive handles GET /api/students.
func (h *Handler) ListActive(c *gin.Context) {
	list, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load students")
		return
	}
	if list == nil {
		list = []models.Student{}
	}
	response.OK(c, list)
}
