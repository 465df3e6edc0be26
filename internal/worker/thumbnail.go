package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"slidestudio/internal/canvas"
	"slidestudio/internal/errcode"
	"slidestudio/internal/notify"
	"slidestudio/internal/repository"
	"slidestudio/internal/slide"
	"slidestudio/internal/snapshot"
	"slidestudio/internal/tasks"
)

const EventThumbnailReady = "design.thumbnail"

// DesignSource 读取设计并回写预览图地址。
type DesignSource interface {
	GetDesign(ctx context.Context, id uint) (*slide.Design, error)
	SetPreview(ctx context.Context, id uint, url string) error
}

// MediaResolver 将 background_media_id 解析为可访问地址。
type MediaResolver interface {
	ResolveURL(ctx context.Context, id uint) (string, error)
}

// ObjectStore 上传缩略图。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	PublicURL(objectKey string) string
}

// ThumbnailHandler 负责消费 slide:thumbnail 任务。
type ThumbnailHandler struct {
	designs  DesignSource
	media    MediaResolver
	shooter  snapshot.Screenshotter
	storage  ObjectStore
	notifier notify.Notifier
	width    int
	logger   *slog.Logger
	now      func() time.Time
}

func NewThumbnailHandler(
	designs DesignSource,
	media MediaResolver,
	shooter snapshot.Screenshotter,
	storage ObjectStore,
	notifier notify.Notifier,
	width int,
	logger *slog.Logger,
) *ThumbnailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &ThumbnailHandler{
		designs:  designs,
		media:    media,
		shooter:  shooter,
		storage:  storage,
		notifier: notifier,
		width:    width,
		logger:   logger,
		now:      time.Now,
	}
}

// ThumbnailObjectKey 返回设计缩略图的对象 key，重复生成会覆盖同一对象。
func ThumbnailObjectKey(designID uint) string {
	return fmt.Sprintf("thumbnails/designs/%d/preview.jpg", designID)
}

// ProcessTask 实现 asynq.Handler。
func (h *ThumbnailHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.SlideThumbnailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("design_id", uint64(payload.DesignID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("starting slide thumbnail task")

	design, err := h.designs.GetDesign(ctx, payload.DesignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("design not found, skipping task")
			return nil
		}
		log.Error("query design failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		h.notifier.Notify(ctx, payload.UserID, notify.Notification{
			Level:         notify.LevelError,
			Event:         EventThumbnailReady,
			Code:          errcode.SystemError,
			Message:       strings.TrimSpace(retErr.Error()),
			DesignID:      payload.DesignID,
			CorrelationID: payload.CorrelationID,
		})
	}()

	url, err := h.generate(ctx, log, design)
	if err != nil {
		return err
	}

	h.notifier.Notify(ctx, payload.UserID, notify.Notification{
		Level:         notify.LevelSuccess,
		Event:         EventThumbnailReady,
		Code:          errcode.OK,
		Message:       url,
		DesignID:      payload.DesignID,
		CorrelationID: payload.CorrelationID,
	})
	log.Info("slide thumbnail task completed", slog.String("preview_url", url))
	return nil
}

func (h *ThumbnailHandler) generate(ctx context.Context, log *slog.Logger, design *slide.Design) (string, error) {
	opts := canvas.Options{Viewport: canvas.DefaultViewport()}
	if design.Background.MediaID != nil && h.media != nil {
		bgURL, err := h.media.ResolveURL(ctx, *design.Background.MediaID)
		if err != nil {
			// 媒体被删除时退回到纯色/图片背景继续生成。
			log.Warn("resolve background media failed", slog.Any("error", err))
		} else {
			opts.BackgroundURL = bgURL
		}
	}

	var html bytes.Buffer
	if err := canvas.Render(&html, *design, opts); err != nil {
		return "", fmt.Errorf("render design: %w", err)
	}

	frame := canvas.Layout(*design, opts.Viewport)
	shot, err := h.shooter.Capture(ctx, html.String(), int(frame.Width), int(frame.Height))
	if err != nil {
		log.Error("capture screenshot failed", slog.Any("error", err))
		return "", err
	}

	thumb, err := snapshot.Thumbnail(shot, h.width)
	if err != nil {
		return "", err
	}

	objectKey := ThumbnailObjectKey(design.ID)
	if err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		log.Error("upload thumbnail failed", slog.Any("error", err))
		return "", err
	}

	url := fmt.Sprintf("%s?v=%d", h.storage.PublicURL(objectKey), h.now().Unix())
	if err := h.designs.SetPreview(ctx, design.ID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("design deleted during thumbnail generation")
			return url, nil
		}
		log.Error("update preview url failed", slog.Any("error", err))
		return "", err
	}
	return url, nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
