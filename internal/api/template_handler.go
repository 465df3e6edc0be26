package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"slidestudio/internal/catalog"
	"slidestudio/internal/repository"
	"slidestudio/internal/slide"
)

// TemplateHandler 暴露模板目录。
type TemplateHandler struct {
	catalog *catalog.Catalog
}

func NewTemplateHandler(cat *catalog.Catalog) *TemplateHandler {
	return &TemplateHandler{catalog: cat}
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	entries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		loggerFrom(c).Error("list templates failed", slog.Any("error", err))
		Internal(c, "failed to list templates")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid template id")
		return
	}
	entry, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "template not found")
			return
		}
		Internal(c, "failed to load template")
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CreateTemplate 保存管理员在模板创建器中提交的模板。
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var tpl slide.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		BadRequest(c, err.Error())
		return
	}
	created, err := h.catalog.Create(c.Request.Context(), tpl)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidTemplate) {
			BadRequest(c, err.Error())
			return
		}
		loggerFrom(c).Error("create template failed", slog.Any("error", err))
		Internal(c, "failed to create template")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid template id")
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "template not found")
			return
		}
		Internal(c, "failed to delete template")
		return
	}
	c.Status(http.StatusNoContent)
}
