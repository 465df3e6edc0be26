package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"slidestudio/internal/api/middleware"
	"slidestudio/internal/canvas"
	"slidestudio/internal/catalog"
	"slidestudio/internal/editor"
	"slidestudio/internal/notify"
	"slidestudio/internal/repository"
	"slidestudio/internal/slide"
	"slidestudio/internal/tasks"
)

// TaskEnqueuer 投递异步任务，*asynq.Client 实现该接口。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MediaResolver 将媒体 ID 解析为可访问地址。
type MediaResolver interface {
	ResolveURL(ctx context.Context, id uint) (string, error)
}

// EditorHandler 把编辑会话的操作暴露为 HTTP 接口。
type EditorHandler struct {
	sessions     *editor.Manager
	catalog      *catalog.Catalog
	repo         *repository.Repository
	media        MediaResolver
	notifier     notify.Notifier
	enqueuer     TaskEnqueuer
	historyLimit int
	taskRetry    int
	logger       *slog.Logger
}

func NewEditorHandler(
	sessions *editor.Manager,
	cat *catalog.Catalog,
	repo *repository.Repository,
	media MediaResolver,
	notifier notify.Notifier,
	enqueuer TaskEnqueuer,
	historyLimit int,
	taskRetry int,
	logger *slog.Logger,
) *EditorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditorHandler{
		sessions:     sessions,
		catalog:      cat,
		repo:         repo,
		media:        media,
		notifier:     notifier,
		enqueuer:     enqueuer,
		historyLimit: historyLimit,
		taskRetry:    taskRetry,
		logger:       logger,
	}
}

type openSessionRequest struct {
	DesignID   *uint `json:"design_id"`
	TemplateID *uint `json:"template_id"`
}

// OpenSession 打开编辑会话：编辑已有设计、从模板开始或空白画布。
func (h *EditorHandler) OpenSession(c *gin.Context) {
	user, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req openSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	if req.DesignID != nil && req.TemplateID != nil {
		BadRequest(c, "design_id and template_id are mutually exclusive")
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c)
	opts := editor.Options{
		Owner:        user,
		Persister:    h.repo.DesignWriter(user.UserID),
		Notifier:     h.notifier,
		Logger:       h.logger.With(slog.String("correlation_id", middleware.GetCorrelationID(c))),
		HistoryLimit: h.historyLimit,
	}

	var s *editor.Session
	switch {
	case req.DesignID != nil:
		d, err := h.repo.GetDesign(ctx, *req.DesignID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				NotFound(c, "design not found")
				return
			}
			logger.Error("load design failed", slog.Any("error", err))
			Internal(c, "failed to load design")
			return
		}
		s = editor.NewSessionFromDesign(*d, opts)
	case req.TemplateID != nil:
		entry, err := h.catalog.Get(ctx, *req.TemplateID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				NotFound(c, "template not found")
				return
			}
			logger.Error("load template failed", slog.Any("error", err))
			Internal(c, "failed to load template")
			return
		}
		s = editor.NewSessionFromTemplate(entry.Template, opts)
	default:
		s = editor.NewBlankSession(opts)
	}

	if err := h.sessions.Add(s); err != nil {
		if errors.Is(err, editor.ErrForbidden) {
			Forbidden(c, err.Error())
			return
		}
		Internal(c, "failed to open session")
		return
	}

	logger.Info("editor session opened", slog.String("session_id", s.ID()))
	c.JSON(http.StatusCreated, s.State())
}

// session 取出当前用户拥有的会话，失败时已写出响应。
func (h *EditorHandler) session(c *gin.Context) (*editor.Session, bool) {
	user, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}
	s, err := h.sessions.Get(c.Param("sid"), user)
	if err != nil {
		NotFound(c, "editor session not found")
		return nil, false
	}
	return s, true
}

func (h *EditorHandler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *EditorHandler) CloseSession(c *gin.Context) {
	user, ok := sessionFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if err := h.sessions.Close(c.Param("sid"), user); err != nil {
		NotFound(c, "editor session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func writeElementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, editor.ErrElementNotFound):
		NotFound(c, "element not found")
	case errors.Is(err, editor.ErrInvalidElement), errors.Is(err, editor.ErrInvalidTool),
		errors.Is(err, editor.ErrNotEditing), errors.Is(err, slide.ErrInvalidDesign):
		BadRequest(c, err.Error())
	default:
		Internal(c, "internal error")
	}
}

// AddElement 添加文本元素；请求体为空时使用默认段落。
func (h *EditorHandler) AddElement(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var seed *slide.TextElement
	if c.Request.ContentLength != 0 {
		seed = &slide.TextElement{}
		if err := c.ShouldBindJSON(seed); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	id, err := s.AddElement(seed)
	if err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"element_id": id, "state": s.State()})
}

func (h *EditorHandler) UpdateElement(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var patch editor.ElementPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	changed, err := s.UpdateElement(c.Param("eid"), patch)
	if err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed, "state": s.State()})
}

func (h *EditorHandler) RemoveElement(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	removed := s.RemoveElement(c.Param("eid"))
	c.JSON(http.StatusOK, gin.H{"removed": removed, "state": s.State()})
}

func (h *EditorHandler) DuplicateElement(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, dup := s.DuplicateElement(c.Param("eid"))
	if !dup {
		NotFound(c, "element not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"element_id": id, "state": s.State()})
}

type selectRequest struct {
	ElementID string `json:"element_id"`
}

// Select 选中元素；element_id 为空时清空选择。
func (h *EditorHandler) Select(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ElementID == "" {
		s.ClearSelection()
	} else if err := s.Select(req.ElementID); err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

type toolRequest struct {
	Tool editor.Tool `json:"tool" binding:"required"`
}

func (h *EditorHandler) SetTool(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req toolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := s.SetTool(req.Tool); err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

type canvasClickRequest struct {
	Point     editor.Point `json:"point"`
	Container editor.Size  `json:"container"`
}

func (h *EditorHandler) CanvasClick(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req canvasClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	id, err := s.CanvasClick(req.Point, req.Container)
	if err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"element_id": id, "state": s.State()})
}

type gestureRequest struct {
	Input     string         `json:"input" binding:"required,oneof=pointer touch"`
	Phase     string         `json:"phase" binding:"required"`
	ElementID string         `json:"element_id"`
	Point     editor.Point   `json:"point"`
	Touches   []editor.Point `json:"touches"`
	Container editor.Size    `json:"container"`
}

type gestureResponse struct {
	Accepted bool                 `json:"accepted"`
	Frame    *editor.GestureFrame `json:"frame,omitempty"`
	State    editor.State         `json:"state"`
}

// Gesture 转发指针与触摸事件。move 只返回帧，结束时才提交历史。
func (h *EditorHandler) Gesture(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req gestureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resp := gestureResponse{}
	switch req.Input + ":" + req.Phase {
	case "pointer:down":
		resp.Accepted = s.PointerDown(req.ElementID, req.Point, req.Container)
	case "pointer:move":
		frame, moved := s.PointerMove(req.Point, req.Container)
		resp.Accepted = moved
		if moved {
			resp.Frame = &frame
		}
	case "pointer:up":
		resp.Accepted = s.PointerUp()
	case "touch:start":
		resp.Accepted = s.TouchStart(req.ElementID, req.Touches, req.Container) != editor.GestureIdle
	case "touch:move":
		frame, moved := s.TouchMove(req.Touches, req.Container)
		resp.Accepted = moved
		if moved {
			resp.Frame = &frame
		}
	case "touch:end":
		resp.Accepted = s.TouchEnd()
	default:
		BadRequest(c, fmt.Sprintf("unsupported gesture phase %q for %s", req.Phase, req.Input))
		return
	}
	resp.State = s.State()
	c.JSON(http.StatusOK, resp)
}

type textEditRequest struct {
	Action    string `json:"action" binding:"required,oneof=begin draft commit cancel"`
	ElementID string `json:"element_id"`
	Text      string `json:"text"`
}

// TextEdit 处理行内编辑：begin 等同双击，draft 更新草稿，commit/cancel 结束编辑。
func (h *EditorHandler) TextEdit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req textEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	var err error
	committed := false
	switch req.Action {
	case "begin":
		_, err = s.DoubleClick(req.ElementID)
	case "draft":
		err = s.SetDraftText(req.Text)
	case "commit":
		committed, err = s.CommitTextEdit()
	case "cancel":
		err = s.CancelTextEdit()
	}
	if err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"committed": committed, "state": s.State()})
}

func (h *EditorHandler) KeyDown(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var key editor.Key
	if err := c.ShouldBindJSON(&key); err != nil {
		BadRequest(c, err.Error())
		return
	}
	handled, err := s.KeyDown(key)
	if err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"handled": handled, "state": s.State()})
}

func (h *EditorHandler) Undo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	applied := s.Undo()
	c.JSON(http.StatusOK, gin.H{"applied": applied, "state": s.State()})
}

func (h *EditorHandler) Redo(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	applied := s.Redo()
	c.JSON(http.StatusOK, gin.H{"applied": applied, "state": s.State()})
}

func (h *EditorHandler) UpdateMetadata(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var patch editor.MetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if _, err := s.UpdateMetadata(patch); err != nil {
		writeElementError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

// viewportFromQuery 读取 zoom（百分比）与 grid；step=in|out 在 zoom 的基础上缩放一级。
func viewportFromQuery(c *gin.Context) canvas.Viewport {
	vp := canvas.DefaultViewport()
	if z, err := strconv.Atoi(c.Query("zoom")); err == nil {
		vp.Zoom = z
	}
	vp.Grid = c.Query("grid") == "1" || c.Query("grid") == "true"
	switch c.Query("step") {
	case "in":
		return vp.ZoomIn()
	case "out":
		return vp.ZoomOut()
	}
	return vp.Normalize()
}

// writePreview 先渲染到缓冲区，渲染失败时返回 500 而不是半截页面。
func writePreview(c *gin.Context, render func(w io.Writer) error) {
	var page bytes.Buffer
	if err := render(&page); err != nil {
		loggerFrom(c).Error("render preview failed", slog.Any("error", err))
		Internal(c, "failed to render preview")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page.Bytes())
}

func (h *EditorHandler) backgroundURL(ctx context.Context, d slide.Design) string {
	if d.Background.MediaID == nil || h.media == nil {
		return ""
	}
	url, err := h.media.ResolveURL(ctx, *d.Background.MediaID)
	if err != nil {
		h.logger.Warn("resolve background media failed",
			slog.Uint64("media_id", uint64(*d.Background.MediaID)),
			slog.Any("error", err),
		)
		return ""
	}
	return url
}

// Preview 渲染当前草稿，不可编辑的区域以遮罩显示。
func (h *EditorHandler) Preview(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	opts := canvas.Options{
		Viewport:      viewportFromQuery(c),
		BackgroundURL: h.backgroundURL(c.Request.Context(), s.Draft()),
		Reserved:      s.ReservedRegions(),
	}
	writePreview(c, func(w io.Writer) error { return s.Preview(w, opts) })
}

func (h *EditorHandler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	name, data, err := s.ExportJSON()
	if err != nil {
		Internal(c, "failed to export design")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/json", data)
}

// Save 持久化草稿，成功后投递缩略图任务。
func (h *EditorHandler) Save(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	logger := loggerFrom(c)

	design, err := s.Save(ctx)
	if err != nil {
		switch {
		case errors.Is(err, editor.ErrTitleRequired), errors.Is(err, slide.ErrInvalidDesign):
			BadRequest(c, err.Error())
		case errors.Is(err, editor.ErrSaveInProgress):
			Conflict(c, err.Error())
		case errors.Is(err, editor.ErrForbidden):
			Forbidden(c, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			NotFound(c, "design not found")
		default:
			Internal(c, "failed to save design")
		}
		return
	}

	h.enqueueThumbnail(ctx, logger, design.ID, s.Owner().UserID, middleware.GetCorrelationID(c))
	c.JSON(http.StatusOK, gin.H{"design": design, "state": s.State()})
}

func (h *EditorHandler) enqueueThumbnail(ctx context.Context, logger *slog.Logger, designID, userID uint, correlationID string) {
	if h.enqueuer == nil {
		return
	}
	task, err := tasks.NewSlideThumbnailTask(designID, userID, correlationID, h.taskRetry)
	if err != nil {
		logger.Error("build thumbnail task failed", slog.Any("error", err))
		return
	}
	if _, err := h.enqueuer.EnqueueContext(ctx, task); err != nil {
		logger.Error("enqueue thumbnail task failed", slog.Any("error", err))
		return
	}
	logger.Info("thumbnail task enqueued", slog.Uint64("design_id", uint64(designID)))
}
