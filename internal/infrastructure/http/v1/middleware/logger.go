package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"adminkit/pkg/logger"
)

// Logger middleware logs HTTP requests with timing and status. Server errors
// are logged at warn level.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}

		l := log.WithContext(c.Request.Context())
		if status >= http.StatusInternalServerError {
			l.Warnw("http request", kv...)
			return
		}
		l.Infow("http request", kv...)
	}
}
