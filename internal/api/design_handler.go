package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slidestudio/internal/canvas"
	"slidestudio/internal/catalog"
	"slidestudio/internal/editor"
	"slidestudio/internal/repository"
	"slidestudio/internal/slide"
	"slidestudio/internal/worker"
)

// ObjectCleaner 删除设计相关的对象（缩略图）。
type ObjectCleaner interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// DesignHandler 提供已保存设计的浏览、预览、导出与删除。
type DesignHandler struct {
	repo    *repository.Repository
	catalog *catalog.Catalog
	media   MediaResolver
	objects ObjectCleaner
}

func NewDesignHandler(repo *repository.Repository, cat *catalog.Catalog, media MediaResolver, objects ObjectCleaner) *DesignHandler {
	return &DesignHandler{repo: repo, catalog: cat, media: media, objects: objects}
}

// ListDesigns 列出设计。非管理员只能看到启用中的。
func (h *DesignHandler) ListDesigns(c *gin.Context) {
	user, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	activeOnly := !user.IsAdmin() || c.Query("active") == "true"
	designs, err := h.repo.ListDesigns(c.Request.Context(), activeOnly)
	if err != nil {
		loggerFrom(c).Error("list designs failed", slog.Any("error", err))
		Internal(c, "failed to list designs")
		return
	}
	c.JSON(http.StatusOK, designs)
}

func (h *DesignHandler) loadDesign(c *gin.Context) (*slide.Design, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid design id")
		return nil, false
	}
	d, err := h.repo.GetDesign(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "design not found")
			return nil, false
		}
		loggerFrom(c).Error("load design failed", slog.Any("error", err))
		Internal(c, "failed to load design")
		return nil, false
	}
	user, _ := sessionFromContext(c)
	if !d.IsActive && !user.IsAdmin() {
		NotFound(c, "design not found")
		return nil, false
	}
	return d, true
}

func (h *DesignHandler) GetDesign(c *gin.Context) {
	d, ok := h.loadDesign(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, d)
}

// reservedFor 返回设计所在布局的保留区；模板已删除时按布局默认区域计算。
func (h *DesignHandler) reservedFor(ctx context.Context, d slide.Design) []slide.Region {
	if d.TemplateID != nil && h.catalog != nil {
		if entry, err := h.catalog.Get(ctx, *d.TemplateID); err == nil {
			return entry.ReservedRegions
		}
	}
	return catalog.ReservedRegions(catalog.DefaultDesignableAreas(d.LayoutType))
}

func (h *DesignHandler) PreviewDesign(c *gin.Context) {
	d, ok := h.loadDesign(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	opts := canvas.Options{Viewport: viewportFromQuery(c)}
	if c.Query("reserved") != "false" {
		opts.Reserved = h.reservedFor(ctx, *d)
	}
	if d.Background.MediaID != nil && h.media != nil {
		if url, err := h.media.ResolveURL(ctx, *d.Background.MediaID); err == nil {
			opts.BackgroundURL = url
		}
	}
	writePreview(c, func(w io.Writer) error { return canvas.Render(w, *d, opts) })
}

func (h *DesignHandler) ExportDesign(c *gin.Context) {
	d, ok := h.loadDesign(c)
	if !ok {
		return
	}
	data, err := editor.MarshalExport(*d)
	if err != nil {
		Internal(c, "failed to export design")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, editor.ExportFileName(d.Title)))
	c.Data(http.StatusOK, "application/json", data)
}

// DeleteDesign 删除设计并清理其缩略图。
func (h *DesignHandler) DeleteDesign(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid design id")
		return
	}
	ctx := c.Request.Context()
	logger := loggerFrom(c).With(slog.Uint64("design_id", uint64(id)))

	if err := h.repo.DeleteDesign(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "design not found")
			return
		}
		logger.Error("delete design failed", slog.Any("error", err))
		Internal(c, "failed to delete design")
		return
	}
	if h.objects != nil {
		prefix := strings.TrimSuffix(worker.ThumbnailObjectKey(id), "preview.jpg")
		if err := h.objects.DeletePrefix(ctx, prefix); err != nil {
			logger.Warn("delete design thumbnails failed", slog.Any("error", err))
		}
	}
	logger.Info("design deleted")
	c.Status(http.StatusNoContent)
}
