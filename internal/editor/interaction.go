package editor

import (
	"math"
	"time"

	"slidestudio/internal/slide"
)

// Point 是容器坐标系中的像素点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size 是画布容器的实测像素尺寸。
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty 在容器尚未布局（宽或高为 0）时为 true。
func (s Size) Empty() bool {
	return !(s.Width > 0) || !(s.Height > 0)
}

// PercentAt 将容器内的像素点转换为百分比坐标；容器为空时 ok 为 false。
func PercentAt(p Point, container Size) (slide.Position, bool) {
	if container.Empty() {
		return slide.Position{}, false
	}
	pos := slide.Position{X: p.X / container.Width * 100, Y: p.Y / container.Height * 100}
	return pos.Clamp(), true
}

// GestureState 是交互层的状态。
type GestureState string

const (
	GestureIdle      GestureState = "idle"
	GestureDrag      GestureState = "drag"
	GestureTransform GestureState = "transform"
)

// TransformFrame 是双指手势一帧的结果。Rotation 仅供调用方展示，不写入样式。
type TransformFrame struct {
	FontSize string  `json:"fontSize"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// Interaction 把指针与触摸输入转换为元素位置和字号的更新。
// 同一时刻只跟踪一个元素的一种手势。
type Interaction struct {
	state     GestureState
	elementID string

	// drag
	offset Point

	// transform
	initialFont     slide.FontSize
	initialDistance float64
	initialAngle    float64
}

func NewInteraction() *Interaction {
	return &Interaction{state: GestureIdle}
}

func (in *Interaction) State() GestureState {
	if in.state == "" {
		return GestureIdle
	}
	return in.state
}

// ElementID 返回当前手势作用的元素。
func (in *Interaction) ElementID() string {
	return in.elementID
}

// BeginDrag 记录按下点与元素中心的像素偏移。容器为空时不进入拖拽状态。
func (in *Interaction) BeginDrag(id string, pos slide.Position, pointer Point, container Size) bool {
	if container.Empty() || id == "" {
		return false
	}
	center := Point{X: pos.X / 100 * container.Width, Y: pos.Y / 100 * container.Height}
	in.reset()
	in.state = GestureDrag
	in.elementID = id
	in.offset = Point{X: pointer.X - center.X, Y: pointer.Y - center.Y}
	return true
}

// MoveDrag 计算拖拽中的新位置（已限制到 [0,100]）。
func (in *Interaction) MoveDrag(pointer Point, container Size) (slide.Position, bool) {
	if in.state != GestureDrag {
		return slide.Position{}, false
	}
	return PercentAt(Point{X: pointer.X - in.offset.X, Y: pointer.Y - in.offset.Y}, container)
}

// BeginTransform 记录两指的初始距离和角度。两点重合时无法计算比例，返回 false。
func (in *Interaction) BeginTransform(id string, fontSize string, a, b Point) bool {
	if id == "" {
		return false
	}
	d := distance(a, b)
	if !(d > 0) {
		return false
	}
	fs, err := slide.ParseFontSize(fontSize)
	if err != nil {
		fs = slide.FontSize{Value: 1, Unit: "rem"}
	}
	in.reset()
	in.state = GestureTransform
	in.elementID = id
	in.initialFont = fs
	in.initialDistance = d
	in.initialAngle = angle(a, b)
	return true
}

// MoveTransform 以初始字号乘以 当前距离/初始距离 得到新字号，限制在 [0.5rem, 5rem]。
func (in *Interaction) MoveTransform(a, b Point) (TransformFrame, bool) {
	if in.state != GestureTransform {
		return TransformFrame{}, false
	}
	d := distance(a, b)
	if !(d > 0) || math.IsInf(d, 0) {
		return TransformFrame{}, false
	}
	scale := d / in.initialDistance
	return TransformFrame{
		FontSize: in.initialFont.Scale(scale).String(),
		Scale:    scale,
		Rotation: normalizeDegrees(angle(a, b) - in.initialAngle),
	}, true
}

// End 结束当前手势并返回被操作的元素 ID。
func (in *Interaction) End() (string, GestureState) {
	id, state := in.elementID, in.State()
	in.reset()
	return id, state
}

func (in *Interaction) reset() {
	*in = Interaction{state: GestureIdle}
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func angle(a, b Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}

func normalizeDegrees(d float64) float64 {
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}

// DoubleTapWindow 是判定双击的最大间隔。
const DoubleTapWindow = 300 * time.Millisecond

// TapTracker 检测同一元素上的两次轻触。
type TapTracker struct {
	lastID string
	lastAt time.Time
}

// Tap 记录一次轻触，构成双击时返回 true 并重置。
func (t *TapTracker) Tap(id string, at time.Time) bool {
	if id != "" && id == t.lastID && !t.lastAt.IsZero() && at.Sub(t.lastAt) <= DoubleTapWindow && !at.Before(t.lastAt) {
		t.lastID, t.lastAt = "", time.Time{}
		return true
	}
	t.lastID, t.lastAt = id, at
	return false
}
