package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"slidestudio/internal/auth"
	"slidestudio/internal/canvas"
	"slidestudio/internal/catalog"
	"slidestudio/internal/errcode"
	"slidestudio/internal/metrics"
	"slidestudio/internal/notify"
	"slidestudio/internal/slide"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrForbidden      = errors.New("not allowed to edit slides")
	ErrNotEditing     = errors.New("no element is being edited")
	ErrNoPersister    = errors.New("no persister configured")
	ErrInvalidTool    = errors.New("unsupported tool")
)

// Tool 是与选择状态正交的工具模式，只有 text 会改变点击画布的行为。
type Tool string

const (
	ToolSelect Tool = "select"
	ToolText   Tool = "text"
	ToolImage  Tool = "image"
)

func (t Tool) Valid() bool {
	return t == ToolSelect || t == ToolText || t == ToolImage
}

// Mode 是编辑会话的状态：idle → selected → editing-text → selected。
type Mode string

const (
	ModeIdle        Mode = "idle"
	ModeSelected    Mode = "selected"
	ModeEditingText Mode = "editing-text"
)

// 行内编辑支持的按键。
const (
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
)

// Key 是一次键盘事件。
type Key struct {
	Name  string `json:"key"`
	Shift bool   `json:"shift"`
}

// Persister 是设计的持久化协作方：ID 为 0 时插入，否则更新。
type Persister interface {
	InsertDesign(ctx context.Context, d *slide.Design) error
	UpdateDesign(ctx context.Context, d *slide.Design) error
}

// Metadata 是编辑器外壳持有的幻灯片元信息。
type Metadata struct {
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	LinkURL      string                  `json:"link_url"`
	LayoutType   slide.LayoutType        `json:"layout_type"`
	TemplateID   *uint                   `json:"template_id,omitempty"`
	Background   slide.Background        `json:"background"`
	Animation    slide.AnimationSettings `json:"animation_settings"`
	IsActive     bool                    `json:"is_active"`
	DisplayOrder int                     `json:"display_order"`
}

// MetadataPatch 是元信息的部分更新。
type MetadataPatch struct {
	Title        *string                  `json:"title,omitempty"`
	Description  *string                  `json:"description,omitempty"`
	LinkURL      *string                  `json:"link_url,omitempty"`
	LayoutType   *slide.LayoutType        `json:"layout_type,omitempty"`
	Background   *slide.Background        `json:"background,omitempty"`
	Animation    *slide.AnimationSettings `json:"animation_settings,omitempty"`
	IsActive     *bool                    `json:"is_active,omitempty"`
	DisplayOrder *int                     `json:"display_order,omitempty"`
}

func (p MetadataPatch) apply(m Metadata) (Metadata, error) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.LinkURL != nil {
		m.LinkURL = strings.TrimSpace(*p.LinkURL)
	}
	if p.LayoutType != nil {
		if !p.LayoutType.Valid() {
			return m, fmt.Errorf("%w: unsupported layout %q", slide.ErrInvalidDesign, *p.LayoutType)
		}
		m.LayoutType = *p.LayoutType
	}
	if p.Background != nil {
		bg := *p.Background
		bg.Color = strings.TrimSpace(bg.Color)
		bg.ImageURL = strings.TrimSpace(bg.ImageURL)
		if bg.Color != "" && !slide.IsHexColor(bg.Color) {
			return m, fmt.Errorf("%w: background color %q is not a hex color", slide.ErrInvalidDesign, bg.Color)
		}
		if bg.Color == "" {
			bg.Color = m.Background.Color
		}
		m.Background = bg
	}
	if p.Animation != nil {
		if err := p.Animation.Validate(); err != nil {
			return m, fmt.Errorf("%w: %v", slide.ErrInvalidDesign, err)
		}
		m.Animation = *p.Animation
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.DisplayOrder != nil {
		m.DisplayOrder = *p.DisplayOrder
	}
	return m, nil
}

// Options 注入会话依赖。
type Options struct {
	Owner        auth.Session
	Persister    Persister
	Notifier     notify.Notifier
	Logger       *slog.Logger
	HistoryLimit int
	Clock        func() time.Time
}

// GestureFrame 是一次移动事件作用到元素上的结果。
type GestureFrame struct {
	ElementID string          `json:"element_id"`
	Position  *slide.Position `json:"position,omitempty"`
	Transform *TransformFrame `json:"transform,omitempty"`
}

// State 是会话对外可见的快照。
type State struct {
	ID              string              `json:"id"`
	DesignID        uint                `json:"design_id,omitempty"`
	Metadata        Metadata            `json:"metadata"`
	Elements        []slide.TextElement `json:"elements"`
	SelectedID      string              `json:"selected_id,omitempty"`
	EditingID       string              `json:"editing_id,omitempty"`
	Mode            Mode                `json:"mode"`
	Tool            Tool                `json:"tool"`
	Gesture         GestureState        `json:"gesture"`
	CanUndo         bool                `json:"can_undo"`
	CanRedo         bool                `json:"can_redo"`
	Saving          bool                `json:"saving"`
	ReservedRegions []slide.Region      `json:"reserved_regions"`
	OutsideElements []string            `json:"outside_elements,omitempty"`

	// ConstraintViolations 列出违反区域数量或类型限制的元素。
	ConstraintViolations []string `json:"constraint_violations,omitempty"`
}

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText 去掉行内编辑提交内容中的所有标记，只保留纯文本。
func sanitizeText(raw string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}

// Session 是一个编辑会话，组合元素存储、历史、交互层与画布。
// 所有操作由互斥锁串行化；Save 在持久化调用期间释放锁。
type Session struct {
	mu sync.Mutex

	id       string
	owner    auth.Session
	designID uint
	meta     Metadata
	preview  string

	backgroundElements []json.RawMessage
	templateAreas      []slide.DesignableArea
	templateLayout     slide.LayoutType

	store   *Store
	history *History
	gesture *Interaction
	taps    TapTracker
	dirty   bool

	tool      Tool
	editingID string
	draftText string
	saving    bool

	persister  Persister
	notifier   notify.Notifier
	logger     *slog.Logger
	now        func() time.Time
	lastActive time.Time
}

func newSession(meta Metadata, elements []slide.TextElement, opts Options) *Session {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	store := NewStore(elements)
	s := &Session{
		id:        id,
		owner:     opts.Owner,
		meta:      meta,
		store:     store,
		history:   NewHistory(store.snapshot(), opts.HistoryLimit),
		gesture:   NewInteraction(),
		tool:      ToolSelect,
		persister: opts.Persister,
		notifier:  notifier,
		logger:    logger.With(slog.String("session_id", id), slog.Uint64("user_id", uint64(opts.Owner.UserID))),
		now:       now,
	}
	s.lastActive = now()
	return s
}

func blankMetadata() Metadata {
	return Metadata{
		LayoutType: slide.LayoutFull,
		Background: slide.Background{Color: slide.DefaultBackgroundColor},
		Animation:  slide.DefaultAnimation(),
		IsActive:   true,
	}
}

// NewBlankSession 打开一个空白设计。
func NewBlankSession(opts Options) *Session {
	return newSession(blankMetadata(), nil, opts)
}

// NewSessionFromTemplate 用模板的文本区域生成元素，模板的默认样式补齐背景与阴影。
func NewSessionFromTemplate(tpl slide.Template, opts Options) *Session {
	meta := blankMetadata()
	if tpl.LayoutType.Valid() {
		meta.LayoutType = tpl.LayoutType
	}
	if tpl.ID != 0 {
		id := tpl.ID
		meta.TemplateID = &id
	}
	if c := strings.TrimSpace(tpl.DefaultStyles.BackgroundColor); slide.IsHexColor(c) {
		meta.Background.Color = c
	}

	elements := make([]slide.TextElement, 0, len(tpl.Data.TextAreas))
	for _, area := range tpl.Data.TextAreas {
		t := area.Type
		if !t.Valid() {
			t = slide.ElementParagraph
		}
		style := area.Style
		if style == (slide.Style{}) {
			style = slide.DefaultStyle(t)
		}
		if style.TextShadow == "" && tpl.DefaultStyles.TextShadow != "" {
			if next, err := style.With(slide.StyleTextShadow, tpl.DefaultStyles.TextShadow); err == nil {
				style = next
			}
		}
		elements = append(elements, slide.TextElement{
			ID:       NewElementID(),
			Type:     t,
			Text:     area.DefaultText,
			Position: area.Position.Clamp(),
			Style:    style,
		})
	}

	s := newSession(meta, elements, opts)
	s.templateAreas = slices.Clone(tpl.DesignableAreas)
	s.templateLayout = meta.LayoutType
	return s
}

// NewSessionFromDesign 载入已保存的设计，保留元素 ID。
func NewSessionFromDesign(d slide.Design, opts Options) *Session {
	meta := Metadata{
		Title:        d.Title,
		Description:  d.Description,
		LinkURL:      d.LinkURL,
		LayoutType:   d.LayoutType,
		TemplateID:   d.TemplateID,
		Background:   d.Background,
		Animation:    d.Animation,
		IsActive:     d.IsActive,
		DisplayOrder: d.DisplayOrder,
	}
	if !meta.LayoutType.Valid() {
		meta.LayoutType = slide.LayoutFull
	}
	if meta.Background.Color == "" {
		meta.Background.Color = slide.DefaultBackgroundColor
	}
	if meta.Animation.Validate() != nil {
		meta.Animation = slide.DefaultAnimation()
	}

	elements := slices.Clone(d.DesignData.TextElements)
	for i := range elements {
		if elements[i].ID == "" {
			elements[i].ID = NewElementID()
		}
		elements[i].Position = elements[i].Position.Clamp()
	}

	s := newSession(meta, elements, opts)
	s.designID = d.ID
	s.preview = d.PreviewImageURL
	s.backgroundElements = slices.Clone(d.DesignData.BackgroundElements)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Owner() auth.Session { return s.owner }

// LastActive 返回最近一次操作时间，用于清理闲置会话。
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

func (s *Session) commitLocked() {
	s.history.Commit(s.store.snapshot())
}

func (s *Session) modeLocked() Mode {
	switch {
	case s.editingID != "":
		return ModeEditingText
	case s.store.Selected() != "":
		return ModeSelected
	default:
		return ModeIdle
	}
}

// Mode 返回当前编辑状态。
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

// AddElement 添加元素并提交历史。
func (s *Session) AddElement(seed *slide.TextElement) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()
	s.cancelEditLocked()

	id, err := s.store.Add(seed)
	if err != nil {
		return "", err
	}
	s.commitLocked()
	return id, nil
}

// UpdateElement 合并部分更新；只有实际发生变化时才提交历史。
func (s *Session) UpdateElement(id string, patch ElementPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()

	changed, err := s.store.Update(id, patch)
	if err != nil || !changed {
		return false, err
	}
	s.commitLocked()
	return true, nil
}

func (s *Session) RemoveElement(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()

	if !s.store.Remove(id) {
		return false
	}
	if s.editingID == id {
		s.editingID, s.draftText = "", ""
	}
	s.commitLocked()
	return true
}

func (s *Session) DuplicateElement(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()
	s.cancelEditLocked()

	newID, ok := s.store.Duplicate(id)
	if !ok {
		return "", false
	}
	s.commitLocked()
	return newID, true
}

// Select 选中元素。切换到其他元素时放弃正在进行的行内编辑。
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err := s.store.Select(id); err != nil {
		return err
	}
	if s.editingID != id {
		s.cancelEditLocked()
	}
	return nil
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.cancelEditLocked()
	s.store.ClearSelection()
}

func (s *Session) SetTool(t Tool) error {
	if !t.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidTool, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.tool = t
	return nil
}

// CanvasClick 处理点击画布空白处：text 工具在点击处创建元素，select 工具清空选择。
// 容器尚未布局时不做任何事。
func (s *Session) CanvasClick(p Point, container Size) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	switch s.tool {
	case ToolText:
		pos, ok := PercentAt(p, container)
		if !ok {
			return "", nil
		}
		s.cancelEditLocked()
		seed := DefaultElement(slide.ElementParagraph)
		seed.Position = pos
		id, err := s.store.Add(&seed)
		if err != nil {
			return "", err
		}
		s.commitLocked()
		return id, nil
	case ToolSelect:
		s.cancelEditLocked()
		s.store.ClearSelection()
	}
	return "", nil
}

// PointerDown 选中元素并开始拖拽。
func (s *Session) PointerDown(id string, pointer Point, container Size) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.beginDragLocked(id, pointer, container)
}

func (s *Session) beginDragLocked(id string, pointer Point, container Size) bool {
	el, ok := s.store.Get(id)
	if !ok || s.editingID == id {
		return false
	}
	_ = s.store.Select(id)
	if s.editingID != "" {
		s.cancelEditLocked()
	}
	return s.gesture.BeginDrag(id, el.Position, pointer, container)
}

// PointerMove 在拖拽中更新位置，不提交历史。
func (s *Session) PointerMove(pointer Point, container Size) (GestureFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.moveDragLocked(pointer, container)
}

func (s *Session) moveDragLocked(pointer Point, container Size) (GestureFrame, bool) {
	pos, ok := s.gesture.MoveDrag(pointer, container)
	if !ok {
		return GestureFrame{}, false
	}
	id := s.gesture.ElementID()
	changed, err := s.store.Update(id, ElementPatch{Position: &pos})
	if err != nil {
		return GestureFrame{}, false
	}
	if changed {
		s.dirty = true
	}
	return GestureFrame{ElementID: id, Position: &pos}, true
}

// PointerUp 结束拖拽；拖拽期间有变化时提交一条历史。
func (s *Session) PointerUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.finishGestureLocked()
}

// TouchStart 处理触摸开始：单指拖拽（双击切换行内编辑），双指进入缩放。
func (s *Session) TouchStart(id string, touches []Point, container Size) GestureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	switch len(touches) {
	case 0:
		return s.gesture.State()
	case 1:
		if s.taps.Tap(id, s.now()) {
			s.finishGestureLocked()
			s.toggleEditLocked(id)
			return s.gesture.State()
		}
		s.beginDragLocked(id, touches[0], container)
	default:
		el, ok := s.store.Get(id)
		if !ok {
			return s.gesture.State()
		}
		_ = s.store.Select(id)
		s.gesture.End()
		s.gesture.BeginTransform(id, el.Style.FontSize, touches[0], touches[1])
	}
	return s.gesture.State()
}

// TouchMove 把触摸移动应用到元素上，不提交历史。
func (s *Session) TouchMove(touches []Point, container Size) (GestureFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	switch s.gesture.State() {
	case GestureDrag:
		if len(touches) < 1 {
			return GestureFrame{}, false
		}
		return s.moveDragLocked(touches[0], container)
	case GestureTransform:
		if len(touches) < 2 {
			return GestureFrame{}, false
		}
		frame, ok := s.gesture.MoveTransform(touches[0], touches[1])
		if !ok {
			return GestureFrame{}, false
		}
		id := s.gesture.ElementID()
		changed, err := s.store.Update(id, ElementPatch{Style: StylePatch{slide.StyleFontSize: frame.FontSize}})
		if err != nil {
			return GestureFrame{}, false
		}
		if changed {
			s.dirty = true
		}
		return GestureFrame{ElementID: id, Transform: &frame}, true
	}
	return GestureFrame{}, false
}

func (s *Session) TouchEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	return s.finishGestureLocked()
}

func (s *Session) finishGestureLocked() bool {
	s.gesture.End()
	if !s.dirty {
		return false
	}
	s.dirty = false
	s.commitLocked()
	return true
}

// DoubleClick 切换元素的行内编辑。
func (s *Session) DoubleClick(id string) (Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()
	if err := s.toggleEditLocked(id); err != nil {
		return s.modeLocked(), err
	}
	return s.modeLocked(), nil
}

func (s *Session) toggleEditLocked(id string) error {
	if s.editingID == id && id != "" {
		s.commitEditLocked()
		return nil
	}
	el, ok := s.store.Get(id)
	if !ok {
		return ErrElementNotFound
	}
	s.cancelEditLocked()
	_ = s.store.Select(id)
	s.editingID = id
	s.draftText = el.Text
	return nil
}

// SetDraftText 更新行内编辑中的文本，提交前不写入元素。
func (s *Session) SetDraftText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.editingID == "" {
		return ErrNotEditing
	}
	s.draftText = text
	return nil
}

// KeyDown 处理行内编辑按键：Enter（不按 Shift）提交，Escape 取消。
func (s *Session) KeyDown(k Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.editingID == "" {
		return false, ErrNotEditing
	}
	switch {
	case k.Name == KeyEnter && !k.Shift:
		s.commitEditLocked()
		return true, nil
	case k.Name == KeyEscape:
		s.cancelEditLocked()
		return true, nil
	}
	return false, nil
}

// CommitTextEdit 提交行内编辑，返回元素是否变化。
func (s *Session) CommitTextEdit() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.editingID == "" {
		return false, ErrNotEditing
	}
	return s.commitEditLocked(), nil
}

func (s *Session) CancelTextEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.editingID == "" {
		return ErrNotEditing
	}
	s.cancelEditLocked()
	return nil
}

// commitEditLocked 清洗草稿文本后写入元素；清洗后为空视为取消。
func (s *Session) commitEditLocked() bool {
	id, text := s.editingID, sanitizeText(s.draftText)
	s.editingID, s.draftText = "", ""
	if id == "" || text == "" {
		return false
	}
	changed, err := s.store.Update(id, ElementPatch{Text: &text})
	if err != nil || !changed {
		return false
	}
	s.commitLocked()
	return true
}

func (s *Session) cancelEditLocked() {
	s.editingID, s.draftText = "", ""
}

// Undo 恢复上一个快照。
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()
	s.cancelEditLocked()

	snapshot, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.store.restore(snapshot)
	return true
}

// Redo 恢复下一个快照。
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.finishGestureLocked()
	s.cancelEditLocked()

	snapshot, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.store.restore(snapshot)
	return true
}

// UpdateMetadata 修改元信息；元信息不进入撤销历史。
func (s *Session) UpdateMetadata(patch MetadataPatch) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	meta, err := patch.apply(s.meta)
	if err != nil {
		return s.meta, err
	}
	s.meta = meta
	return meta, nil
}

func (s *Session) designableAreasLocked() []slide.DesignableArea {
	if len(s.templateAreas) > 0 && s.meta.LayoutType == s.templateLayout {
		return s.templateAreas
	}
	return catalog.DefaultDesignableAreas(s.meta.LayoutType)
}

// ReservedRegions 返回当前布局下不可设计的区域。
func (s *Session) ReservedRegions() []slide.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.ReservedRegions(s.designableAreasLocked())
}

func (s *Session) draftLocked() slide.Design {
	elements := s.store.Elements()
	if elements == nil {
		elements = []slide.TextElement{}
	}
	return slide.Design{
		ID:           s.designID,
		Title:        strings.TrimSpace(s.meta.Title),
		Description:  s.meta.Description,
		TemplateID:   s.meta.TemplateID,
		LayoutType:   s.meta.LayoutType,
		LinkURL:      s.meta.LinkURL,
		IsActive:     s.meta.IsActive,
		DisplayOrder: s.meta.DisplayOrder,
		Background:   s.meta.Background,
		Animation:    s.meta.Animation,
		DesignData: slide.DesignData{
			TextElements:       elements,
			BackgroundElements: slices.Clone(s.backgroundElements),
		},
		PreviewImageURL: s.preview,
	}
}

// Draft 把当前内存状态组装成设计载荷，不做持久化。
func (s *Session) Draft() slide.Design {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	areas := s.designableAreasLocked()
	elements := s.store.Elements()
	if elements == nil {
		elements = []slide.TextElement{}
	}
	return State{
		ID:              s.id,
		DesignID:        s.designID,
		Metadata:        s.meta,
		Elements:        elements,
		SelectedID:      s.store.Selected(),
		EditingID:       s.editingID,
		Mode:            s.modeLocked(),
		Tool:            s.tool,
		Gesture:         s.gesture.State(),
		CanUndo:         s.history.CanUndo(),
		CanRedo:         s.history.CanRedo(),
		Saving:          s.saving,
		ReservedRegions: catalog.ReservedRegions(areas),
		OutsideElements: catalog.OutsideElements(areas, elements),

		ConstraintViolations: catalog.ConstraintViolations(areas, elements),
	}
}

// Save 校验标题后把设计交给持久化协作方：新设计插入，已有设计更新，成功后清空选择。
// 标题为空时不会调用持久化；同一会话同时只允许一个保存请求。
func (s *Session) Save(ctx context.Context) (slide.Design, error) {
	s.mu.Lock()
	s.touchLocked()
	log := s.logger

	if !s.owner.CanEditSlides() {
		s.mu.Unlock()
		return slide.Design{}, ErrForbidden
	}
	if s.saving {
		s.mu.Unlock()
		metrics.ObserveSave(metrics.SaveInProgress)
		return slide.Design{}, ErrSaveInProgress
	}
	if strings.TrimSpace(s.meta.Title) == "" {
		s.mu.Unlock()
		metrics.ObserveSave(metrics.SaveRejected)
		s.notifier.Notify(ctx, s.owner.UserID, notify.Notification{
			Level:   notify.LevelError,
			Event:   "design.save",
			Code:    errcode.Validation,
			Message: "Please enter a title for the slide",
		})
		return slide.Design{}, ErrTitleRequired
	}
	s.finishGestureLocked()
	design := s.draftLocked()
	if err := design.Validate(); err != nil {
		s.mu.Unlock()
		metrics.ObserveSave(metrics.SaveRejected)
		return slide.Design{}, err
	}
	if s.persister == nil {
		s.mu.Unlock()
		return slide.Design{}, ErrNoPersister
	}
	s.saving = true
	s.mu.Unlock()

	created := design.ID == 0
	var err error
	if created {
		err = s.persister.InsertDesign(ctx, &design)
	} else {
		err = s.persister.UpdateDesign(ctx, &design)
	}

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.mu.Unlock()
		log.Error("save design failed", slog.Uint64("design_id", uint64(design.ID)), slog.Any("error", err))
		metrics.ObserveSave(metrics.SaveFailed)
		s.notifier.Notify(ctx, s.owner.UserID, notify.Notification{
			Level:    notify.LevelError,
			Event:    "design.save",
			Code:     errcode.SystemError,
			Message:  "Failed to save slide design",
			DesignID: design.ID,
		})
		return slide.Design{}, fmt.Errorf("save design: %w", err)
	}
	s.designID = design.ID
	s.preview = design.PreviewImageURL
	s.cancelEditLocked()
	s.store.ClearSelection()
	s.mu.Unlock()

	outcome, message := metrics.SaveUpdated, "Slide design updated"
	if created {
		outcome, message = metrics.SaveInserted, "Slide design created"
	}
	metrics.ObserveSave(outcome)
	log.Info("design saved", slog.Uint64("design_id", uint64(design.ID)), slog.Bool("created", created))
	s.notifier.Notify(ctx, s.owner.UserID, notify.Notification{
		Level:    notify.LevelSuccess,
		Event:    "design.save",
		Code:     errcode.OK,
		Message:  message,
		DesignID: design.ID,
	})
	return design, nil
}

// Preview 渲染当前内存状态，无需先保存。
func (s *Session) Preview(w io.Writer, opts canvas.Options) error {
	design := s.Draft()
	return canvas.Render(w, design, opts)
}

// ExportJSON 返回导出文件名与内容。
func (s *Session) ExportJSON() (string, []byte, error) {
	design := s.Draft()
	data, err := MarshalExport(design)
	if err != nil {
		return "", nil, err
	}
	return ExportFileName(design.Title), data, nil
}
