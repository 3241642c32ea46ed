package v1

import (
	"github.com/gin-gonic/gin"
)

// EntityRouteHandler defines the generic entity endpoints.
type EntityRouteHandler interface {
	Index(c *gin.Context)
	List(c *gin.Context)
	Save(c *gin.Context)
	Get(c *gin.Context)
	Delete(c *gin.Context)
	RelationList(c *gin.Context)
}

// HistoryRouteHandler is an optional interface for handlers that expose an
// audit trail.
type HistoryRouteHandler interface {
	HasHistory() bool
	History(c *gin.Context)
}

// RegisterEntityRoutes registers the entity routes on group. If the handler
// also implements HistoryRouteHandler and has a history source, the history
// route is registered too.
//
// Usage:
//
//	handler := handlers.NewAdminHandler(baseHandler, service, auditLog)
//	RegisterEntityRoutes(router.Group("/admin"), handler)
func RegisterEntityRoutes(group *gin.RouterGroup, handler EntityRouteHandler) {
	group.GET("", handler.Index)
	group.GET("/:entity", handler.List)
	group.POST("/:entity", handler.Save)
	group.GET("/:entity/:id", handler.Get)
	group.DELETE("/:entity/:id", handler.Delete)
	group.GET("/:entity/:id/rel/:rel", handler.RelationList)

	if h, ok := handler.(HistoryRouteHandler); ok && h.HasHistory() {
		group.GET("/:entity/:id/history", h.History)
	}
}
