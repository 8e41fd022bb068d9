package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func postLimited(limit int64, body string, contentLength int64) (*httptest.ResponseRecorder, error) {
	gin.SetMode(gin.TestMode)

	var readErr error
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/payments", func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
		if readErr != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	req.ContentLength = contentLength
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, readErr
}

func TestBodyLimit(t *testing.T) {
	t.Run("body under the cap passes", func(t *testing.T) {
		w, err := postLimited(1024, `{"paidAmount":"1250.50"}`, 24)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, err)
	})

	t.Run("declared length over the cap is rejected before reading", func(t *testing.T) {
		w, _ := postLimited(100, strings.Repeat("x", 200), 200)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("chunked body over the cap fails at read time", func(t *testing.T) {
		// no declared length, so the cap has to bite during streaming
		w, err := postLimited(50, strings.Repeat("x", 100), -1)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Error(t, err)
	})
}
