package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the JSON envelope for the query API. Every endpoint either
// succeeds with data or fails with a 500; validation happens on the
// websocket path, so the API needs nothing in between.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}
