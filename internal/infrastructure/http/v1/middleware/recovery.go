// Package middleware provides the gin middleware of the admin API.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"adminkit/internal/core/apperror"
	appctx "adminkit/internal/core/context"
	"adminkit/pkg/logger"
)

// Recovery converts a handler panic into INTERNAL_ERROR. The panic value and
// stack are logged with the route and entity key; the client only sees the
// request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "handler panicked",
				"panic", rec,
				"route", c.FullPath(),
				"entity", c.Param("entity"),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
				WithDetail("request_id", appctx.GetRequestID(ctx)))
			c.Abort()
		}()
		c.Next()
	}
}
