package slide

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ElementType 表示文本元素的语义类型，只影响默认样式。
type ElementType string

const (
	ElementHeading   ElementType = "heading"
	ElementParagraph ElementType = "paragraph"
	ElementCaption   ElementType = "caption"
)

// Valid 判断类型是否受支持。
func (t ElementType) Valid() bool {
	switch t {
	case ElementHeading, ElementParagraph, ElementCaption:
		return true
	}
	return false
}

// LayoutType 决定画布上哪些区域可以设计。
type LayoutType string

const (
	LayoutFull           LayoutType = "full"
	LayoutHalfHorizontal LayoutType = "half_horizontal"
	LayoutHalfVertical   LayoutType = "half_vertical"
	LayoutQuarter        LayoutType = "quarter"
)

func (l LayoutType) Valid() bool {
	switch l {
	case LayoutFull, LayoutHalfHorizontal, LayoutHalfVertical, LayoutQuarter:
		return true
	}
	return false
}

// Transition 是幻灯片切换动画。
type Transition string

const (
	TransitionFade  Transition = "fade"
	TransitionSlide Transition = "slide"
	TransitionZoom  Transition = "zoom"
	TransitionNone  Transition = "none"
)

func (t Transition) Valid() bool {
	switch t {
	case TransitionFade, TransitionSlide, TransitionZoom, TransitionNone:
		return true
	}
	return false
}

// Position 以画布宽高的百分比表示元素中心点。
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClampPercent 将数值限制在 [0, 100]。
func ClampPercent(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Clamp 返回坐标被限制到画布范围内的副本。
func (p Position) Clamp() Position {
	return Position{X: ClampPercent(p.X), Y: ClampPercent(p.Y)}
}

// Offset 平移坐标，不做限制。
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// TextElement 是画布上的一段定位文本。
type TextElement struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	Text     string      `json:"text"`
	Position Position    `json:"position"`
	Style    Style       `json:"style"`
}

// DesignData 是 Element Store 的序列化形式，存储在 design_data 列中。
// 背景元素保持原样透传。
type DesignData struct {
	TextElements       []TextElement     `json:"textElements"`
	BackgroundElements []json.RawMessage `json:"backgroundElements"`
}

// AnimationSettings 描述轮播时的动画。
type AnimationSettings struct {
	Duration   int        `json:"duration"`
	Transition Transition `json:"transition"`
	AutoPlay   bool       `json:"autoPlay"`
}

const (
	MinAnimationDuration = 500
	MaxAnimationDuration = 60000
)

// DefaultAnimation 返回新幻灯片的默认动画设置。
func DefaultAnimation() AnimationSettings {
	return AnimationSettings{Duration: 5000, Transition: TransitionFade, AutoPlay: true}
}

func (a AnimationSettings) Validate() error {
	if a.Duration < MinAnimationDuration || a.Duration > MaxAnimationDuration {
		return fmt.Errorf("animation duration must be between %d and %d ms", MinAnimationDuration, MaxAnimationDuration)
	}
	if !a.Transition.Valid() {
		return fmt.Errorf("unsupported transition %q", a.Transition)
	}
	return nil
}

// Background 表示幻灯片背景的三种来源，媒体与图片优先于纯色。
type Background struct {
	Color    string `json:"background_color"`
	ImageURL string `json:"background_image_url,omitempty"`
	MediaID  *uint  `json:"background_media_id,omitempty"`
}

// BackgroundKind 为解析后实际生效的背景来源。
type BackgroundKind string

const (
	BackgroundColor BackgroundKind = "color"
	BackgroundImage BackgroundKind = "image"
	BackgroundMedia BackgroundKind = "media"
)

// Effective 返回实际生效的背景来源。
func (b Background) Effective() BackgroundKind {
	switch {
	case b.MediaID != nil:
		return BackgroundMedia
	case strings.TrimSpace(b.ImageURL) != "":
		return BackgroundImage
	default:
		return BackgroundColor
	}
}

const DefaultBackgroundColor = "#1e293b"

// Design 是持久化的幻灯片设计（slide_designs）。
type Design struct {
	ID              uint              `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	TemplateID      *uint             `json:"template_id,omitempty"`
	LayoutType      LayoutType        `json:"layout_type"`
	DesignData      DesignData        `json:"design_data"`
	Background      Background        `json:"background"`
	Animation       AnimationSettings `json:"animation_settings"`
	LinkURL         string            `json:"link_url,omitempty"`
	IsActive        bool              `json:"is_active"`
	DisplayOrder    int               `json:"display_order"`
	PreviewImageURL string            `json:"preview_image_url,omitempty"`
}

var ErrInvalidDesign = errors.New("invalid slide design")

// Validate 检查设计在保存前是否完整。
func (d Design) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDesign)
	}
	if !d.LayoutType.Valid() {
		return fmt.Errorf("%w: unsupported layout %q", ErrInvalidDesign, d.LayoutType)
	}
	if err := d.Animation.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDesign, err)
	}
	if c := strings.TrimSpace(d.Background.Color); c != "" && !IsHexColor(c) {
		return fmt.Errorf("%w: background color %q is not a hex color", ErrInvalidDesign, c)
	}
	seen := make(map[string]struct{}, len(d.DesignData.TextElements))
	for _, el := range d.DesignData.TextElements {
		if el.ID == "" {
			return fmt.Errorf("%w: element id is required", ErrInvalidDesign)
		}
		if _, dup := seen[el.ID]; dup {
			return fmt.Errorf("%w: duplicate element id %q", ErrInvalidDesign, el.ID)
		}
		seen[el.ID] = struct{}{}
		if !el.Type.Valid() {
			return fmt.Errorf("%w: element %s has unsupported type %q", ErrInvalidDesign, el.ID, el.Type)
		}
		if err := el.Style.Validate(); err != nil {
			return fmt.Errorf("%w: element %s: %v", ErrInvalidDesign, el.ID, err)
		}
	}
	return nil
}
