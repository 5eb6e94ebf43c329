package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("recovers from a panic and responds 500", func(t *testing.T) {
		var buf bytes.Buffer
		testLogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Recovery(testLogger))
		router.GET("/panic_test", func(c *gin.Context) {
			panic("boom")
		})

		correlationID := uuid.New().String()
		req, _ := http.NewRequest(http.MethodGet, "/panic_test", nil)
		req.Header.Set(CorrelationIDHeader, correlationID)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

		errField, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", errField["code"])
		assert.Equal(t, "An internal server error occurred", errField["message"])
		assert.Equal(t, correlationID, body["correlation_id"])

		out := buf.String()
		assert.Contains(t, out, `"msg":"Panic recovered"`)
		assert.Contains(t, out, `"error":"boom"`)
		assert.Contains(t, out, `"stack":`)
		assert.Contains(t, out, `"path":"/panic_test"`)
	})

	t.Run("passes healthy requests through untouched", func(t *testing.T) {
		var buf bytes.Buffer
		testLogger := slog.New(slog.NewJSONHandler(&buf, nil))

		router := gin.New()
		router.Use(Recovery(testLogger))
		router.GET("/no_panic", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/no_panic", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, buf.String())
	})
}
