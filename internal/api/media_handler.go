package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"slidestudio/internal/media"
	"slidestudio/internal/repository"
)

const uploadsPerHour = 120

// MediaHandler 处理媒体库上传与浏览。
type MediaHandler struct {
	service *media.Service
	limiter redisRateCounter
}

func NewMediaHandler(service *media.Service, limiter redisRateCounter) *MediaHandler {
	return &MediaHandler{service: service, limiter: limiter}
}

// Upload 接收 multipart 表单中的 file 字段。
func (h *MediaHandler) Upload(c *gin.Context) {
	user, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	rateKey := fmt.Sprintf("rate:upload:%d:%s", user.UserID, time.Now().UTC().Format("2006010215"))
	if h.limiter != nil && !allowWithinWindow(ctx, h.limiter, rateKey, uploadsPerHour, time.Hour) {
		TooManyRequests(c, "upload rate limit exceeded")
		return
	}

	if limit := h.service.MaxBytes(); limit > 0 {
		// 预留 multipart 边界的开销。
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, media.ErrFileTooLarge.Error())
			return
		}
		BadRequest(c, "missing file")
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer reader.Close()

	item, err := h.service.Upload(ctx, media.Upload{
		UserID:   user.UserID,
		FileName: file.Filename,
		Size:     file.Size,
		Body:     reader,
	})
	if err != nil {
		switch {
		case errors.Is(err, media.ErrFileTooLarge):
			Error(c, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, media.ErrUnsupportedType), errors.Is(err, media.ErrEmptyFile):
			Error(c, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, media.ErrMaliciousFile):
			BadRequest(c, "malicious file detected")
		default:
			loggerFrom(c).Error("upload media failed", slog.Any("error", err))
			Internal(c, "failed to upload file")
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *MediaHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "60"))
	kind := media.Kind(c.Query("kind"))
	if kind != "" && kind != media.KindImage && kind != media.KindVideo {
		BadRequest(c, "invalid media kind")
		return
	}
	items, err := h.service.List(c.Request.Context(), kind, limit)
	if err != nil {
		loggerFrom(c).Error("list media failed", slog.Any("error", err))
		Internal(c, "failed to list media")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *MediaHandler) Delete(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid media id")
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "media not found")
			return
		}
		loggerFrom(c).Error("delete media failed", slog.Any("error", err))
		Internal(c, "failed to delete media")
		return
	}
	c.Status(http.StatusNoContent)
}
