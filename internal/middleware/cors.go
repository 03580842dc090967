package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The query API is read-only and the realtime traffic rides the websocket,
// so the browser only ever preflights simple GETs from the classroom UI.
const (
	allowedMethods = "GET, OPTIONS"
	allowedHeaders = "Content-Type"
)

// CORS returns a middleware allowing cross-origin reads of the query API.
// allowedOrigins is "*" or a comma-separated origin list.
func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	wildcard := len(origins) == 0 || origins["*"]

	return func(c *gin.Context) {
		allow := ""
		switch origin := c.GetHeader("Origin"); {
		case wildcard:
			allow = "*"
		case origins[origin]:
			allow = origin
		}
		if allow != "" {
			c.Header("Access-Control-Allow-Origin", allow)
			c.Header("Access-Control-Allow-Methods", allowedMethods)
			c.Header("Access-Control-Allow-Headers", allowedHeaders)
			c.Header("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
