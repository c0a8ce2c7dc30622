package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"viewfilter/internal/logger"
	"viewfilter/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = logging.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("propagates incoming id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-1", seen)
	})

	t.Run("assigns an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		assert.Equal(t, w.Header().Get(RequestIDHeader), seen)
	})
}

func TestRecoveryAndLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	router := gin.New()
	router.Use(LoggerMiddleware(log), RecoveryMiddleware(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error","error_code":"INTERNAL_ERROR"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())

	requests := logs.FilterMessage("HTTP Request").All()
	if assert.Len(t, requests, 1) {
		assert.Equal(t, zapcore.ErrorLevel, requests[0].Level)
	}
}
