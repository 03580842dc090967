package polls

import (
	"github.com/gin-gonic/gin"

	"github.com/classlive/backend/internal/models"
	"github.com/classlive/backend/pkg/response"
)

// Handler serves the read-only poll query endpoints. Clients use them for
// initial hydration; live updates arrive over the WebSocket.
type Handler struct {
	repo *Repository
}

// NewHandler creates a polls handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Current handles GET /api/polls/current.
func (h *Handler) Current(c *gin.Context) {
	poll, err := h.repo.GetCurrent(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load current poll")
		return
	}
	response.OK(c, poll)
}

// History handles GET /api/polls/history (ended polls, newest first).
func (h *Handler) History(c *gin.Context) {
	list, err := h.repo.ListEnded(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load poll history")
		return
	}
	if list == nil {
		list = []*models.Poll{} // JSON [] rather than null
	}
	response.OK(c, list)
}
