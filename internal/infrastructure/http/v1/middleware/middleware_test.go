package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/core/apperror"
	appctx "adminkit/internal/core/context"
	"adminkit/internal/infrastructure/http/v1/dto"
	"adminkit/pkg/logger"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logger.NewNop()
	r.Use(Trace(log), Logger(log), ErrorHandler(), Recovery())
	return r
}

func serve(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, dto.ErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body dto.ErrorResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestErrorHandler(t *testing.T) {
	r := newEngine()
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperror.NewNotFound("user", "7"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp: refused"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.String(http.StatusTeapot, "short and stout")
		_ = c.Error(errors.New("late"))
	})

	rec, body := serve(t, r, "/app")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, body.Code)

	rec, body = serve(t, r, "/plain")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
	assert.NotEmpty(t, body.Details["request_id"])

	rec, _ = serve(t, r, "/written")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/boom/:entity", func(*gin.Context) { panic("nil map in shelf projection") })

	rec, body := serve(t, r, "/boom/shelf")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotContains(t, rec.Body.String(), "nil map")
	assert.Equal(t, rec.Header().Get(HeaderRequestID), body.Details["request_id"])
}

func TestTrace(t *testing.T) {
	r := newEngine()
	var requestID string
	r.GET("/t", func(c *gin.Context) {
		requestID = appctx.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set(HeaderTraceID, "trace-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-1", rec.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get(HeaderRequestID))
}
