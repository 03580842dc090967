package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, write func(c *gin.Context)) (*httptest.ResponseRecorder, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	write(c)

	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestOK(t *testing.T) {
	rec, body := record(t, func(c *gin.Context) {
		OK(c, map[string]int{"count": 3})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)
	require.Empty(t, body.Error)
	require.Equal(t, map[string]interface{}{"count": float64(3)}, body.Data)
}

func TestInternal(t *testing.T) {
	rec, body := record(t, func(c *gin.Context) {
		Internal(c, "query failed")
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.False(t, body.Success)
	require.Equal(t, "query failed", body.Error)
	require.Nil(t, body.Data)
}
