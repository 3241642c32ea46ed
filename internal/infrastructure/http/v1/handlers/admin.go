// Package handlers provides HTTP request handlers.
package handlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"adminkit/internal/domain"
	"adminkit/internal/domain/admin"
	"adminkit/internal/infrastructure/http/v1/dto"
)

const defaultHistoryLimit = 50

// HistoryReader returns the audit trail of one instance.
type HistoryReader = domain.AuditReader

// AdminHandler serves the generic entity endpoints.
type AdminHandler struct {
	*BaseHandler
	service *admin.Service
	history HistoryReader
}

// NewAdminHandler creates the handler. history may be nil.
func NewAdminHandler(base *BaseHandler, service *admin.Service, history HistoryReader) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		service:     service,
		history:     history,
	}
}

// HasHistory reports whether an audit trail is available.
func (h *AdminHandler) HasHistory() bool {
	return h.history != nil
}

// Index lists the registered entities.
// GET {base}
func (h *AdminHandler) Index(c *gin.Context) {
	h.OK(c, h.service.Index())
}

// List returns one page of an entity.
// GET {base}/:entity?page=&size=&sort=&dir=&q=
func (h *AdminHandler) List(c *gin.Context) {
	view, err := h.service.List(c.Request.Context(), c.Param("entity"), h.ListQuery(c).ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// Get returns one instance with its relation previews.
// GET {base}/:entity/:id
func (h *AdminHandler) Get(c *gin.Context) {
	view, err := h.service.Detail(c.Request.Context(), c.Param("entity"), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// RelationList pages one plural association of an instance.
// GET {base}/:entity/:id/rel/:rel
func (h *AdminHandler) RelationList(c *gin.Context) {
	view, err := h.service.RelationList(c.Request.Context(),
		c.Param("entity"), c.Param("id"), c.Param("rel"), h.ListQuery(c).ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// Save upserts an instance decoded from the JSON body.
// POST {base}/:entity
func (h *AdminHandler) Save(c *gin.Context) {
	saved, err := h.service.Save(c.Request.Context(), c.Param("entity"), func(target any) error {
		return c.ShouldBindJSON(target)
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.SaveResponse{Entity: saved}
	if def, err := h.service.Describe(c.Param("entity")); err == nil {
		resp.URL = strings.TrimSuffix(h.service.Settings().BasePath, "/") + "/" + def.Key
		if idValue, ok := def.IdentifierOf(saved); ok {
			resp.ID = fmt.Sprint(idValue)
			resp.URL += "/" + url.PathEscape(resp.ID)
		}
	}
	h.Created(c, resp)
}

// Delete removes an instance. Unknown ids succeed.
// DELETE {base}/:entity/:id
func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("entity"), c.Param("id")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// History returns the audit trail of an instance.
// GET {base}/:entity/:id/history?limit=
func (h *AdminHandler) History(c *gin.Context) {
	def, idValue, err := h.service.ResolveID(c.Param("entity"), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	entityID := fmt.Sprint(idValue)
	entries, err := h.history.History(c.Request.Context(), def.Key, entityID, h.ParseIntQuery(c, "limit", defaultHistoryLimit))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.HistoryResponse{Entity: def.Key, ID: entityID, Entries: entries})
}
